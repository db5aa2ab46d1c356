package grpcserver

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"userCrudAPI/internal/config"
	"userCrudAPI/repository"
)

// UsersService is the health service name reported for the users store.
const UsersService = "users"

// StartGRPC starts the gRPC health server on the configured address and returns a shutdown function.
// Both the overall status and UsersService follow the result of pinging the store.
func StartGRPC(cfg *config.Config, store repository.Pinger, errorLog *log.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return nil, err
	}
	return Serve(lis, store, cfg.GRPC.HealthInterval, errorLog), nil
}

// Serve runs the health server on lis. The store is pinged once before Serve
// returns and then every interval.
func Serve(lis net.Listener, store repository.Pinger, interval time.Duration, errorLog *log.Logger) func(context.Context) error {
	if errorLog == nil {
		errorLog = log.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	// Plaintext only; this listener carries no user data.
	srv := grpc.NewServer(grpc.UnaryInterceptor(NewUnaryLoggingInterceptor(errorLog)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	probe := func() { setStatus(hs, ping(watchCtx, store, errorLog)) }
	probe()
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-t.C:
				probe()
			}
		}
	}()

	go func() { _ = srv.Serve(lis) }()

	return func(ctx context.Context) error {
		stopWatch()
		hs.Shutdown()
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}
}

func ping(ctx context.Context, store repository.Pinger, errorLog *log.Logger) healthpb.HealthCheckResponse_ServingStatus {
	if err := store.Ping(ctx); err != nil {
		if ctx.Err() == nil {
			errorLog.Printf("health: store ping failed: %v", err)
		}
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func setStatus(hs *health.Server, status healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", status)
	hs.SetServingStatus(UsersService, status)
}

// NewUnaryLoggingInterceptor returns a unary interceptor that logs the method,
// duration and error of every call.
func NewUnaryLoggingInterceptor(errorLog *log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			errorLog.Printf("grpc %s failed after %v: %v", info.FullMethod, time.Since(start), err)
		} else {
			errorLog.Printf("grpc %s ok in %v", info.FullMethod, time.Since(start))
		}
		return resp, err
	}
}
