package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"userCrudAPI/internal/config"
	"userCrudAPI/internal/db"
	grpcserver "userCrudAPI/internal/grpc"
	"userCrudAPI/internal/httpapi"
	"userCrudAPI/repository"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the most recent schema migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	// Open DB and make sure the users table exists
	d, err := db.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("set up database: %v", err)
	}

	if *rollback {
		err = db.RollbackLast(d)
		if err == nil {
			log.Printf("rolled back last migration")
		}
	} else {
		err = run(cfg, d)
	}
	if cerr := d.Close(); cerr != nil {
		log.Printf("close db: %v", cerr)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("server stopped")
}

func run(cfg *config.Config, d *sqlx.DB) error {
	users := newStore(cfg, d)

	ln, err := httpapi.Listen(cfg.HTTP)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTP.Address, err)
	}
	log.Printf("Server started on %s", ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := httpapi.NewHandler(users, httpapi.DefaultStatusLines(), nil)
	srv := httpapi.NewServer(cfg.HTTP, handler.Router(), nil)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPC.Address != "" {
		shutdown, err := grpcserver.StartGRPC(cfg, users, nil)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("start grpc: %w", err)
		}
		log.Printf("gRPC health server listening on %s", cfg.GRPC.Address)
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(sctx)
		})
	}

	g.Go(func() error { return srv.Serve(gctx, ln) })
	return g.Wait()
}

// storeWithPing is what the server needs from a store: CRUD plus a liveness check.
type storeWithPing interface {
	repository.UserStore
	repository.Pinger
}

func newStore(cfg *config.Config, d *sqlx.DB) storeWithPing {
	if cfg.Database.Pooling == config.PoolingPooled {
		return repository.NewUserRepository(d)
	}
	return repository.NewPerCallStore(cfg.Database.URL)
}
