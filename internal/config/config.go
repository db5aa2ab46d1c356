package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pooling policies for database connections.
const (
	PoolingPerCall = "per-call"
	PoolingPooled  = "pooled"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	GRPC     GRPCConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	URL     string // postgres://..., sqlite://path or a sqlite file: DSN
	Pooling string // PoolingPerCall or PoolingPooled
}

// HTTPConfig contains settings of the raw TCP listener.
type HTTPConfig struct {
	Address        string // listen address (e.g., "0.0.0.0:8080")
	ReadBufferSize int    // bytes read from a connection in a single call
	Concurrent     bool   // handle each connection on its own goroutine
}

// GRPCConfig contains settings of the optional health listener.
type GRPCConfig struct {
	Address        string        // empty disables the listener
	HealthInterval time.Duration // how often the store is pinged
}

// Load reads an optional dotenv file (ENV_FILE, default ".env") and then builds the
// configuration from environment variables. DATABASE_URL is required.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	readBuf, err := getEnvInt("HTTP_READ_BUFFER", 1024)
	if err != nil {
		return nil, err
	}
	concurrent, err := getEnvBool("HTTP_CONCURRENT", false)
	if err != nil {
		return nil, err
	}
	interval, err := getEnvDuration("HEALTH_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:     strings.TrimSpace(getEnv("DATABASE_URL", "")),
			Pooling: getEnv("DB_POOLING", PoolingPerCall),
		},
		HTTP: HTTPConfig{
			Address:        getEnv("HTTP_ADDRESS", "0.0.0.0:8080"),
			ReadBufferSize: readBuf,
			Concurrent:     concurrent,
		},
		GRPC: GRPCConfig{
			Address:        getEnv("GRPC_ADDRESS", ""),
			HealthInterval: interval,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that must be right before the server starts.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	switch c.Database.Pooling {
	case PoolingPerCall, PoolingPooled:
	default:
		return fmt.Errorf("invalid DB_POOLING %q: want %q or %q", c.Database.Pooling, PoolingPerCall, PoolingPooled)
	}
	if c.HTTP.ReadBufferSize <= 0 {
		return fmt.Errorf("HTTP_READ_BUFFER must be positive, got %d", c.HTTP.ReadBufferSize)
	}
	if c.GRPC.Address != "" && c.GRPC.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive, got %s", c.GRPC.HealthInterval)
	}
	return nil
}

// loadEnvFile loads variables from a dotenv file without overriding ones already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (the database password is masked).
func (c *Config) String() string {
	grpcAddr := c.GRPC.Address
	if grpcAddr == "" {
		grpcAddr = "disabled"
	}
	return fmt.Sprintf("Config{DB: %s (%s), HTTP: %s (buffer %d, concurrent %t), gRPC: %s}",
		maskURL(c.Database.URL), c.Database.Pooling, c.HTTP.Address, c.HTTP.ReadBufferSize, c.HTTP.Concurrent, grpcAddr)
}

func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
