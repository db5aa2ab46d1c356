package grpcserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"userCrudAPI/internal/config"
	"userCrudAPI/internal/testutil"
	"userCrudAPI/repository"
)

var discard = log.New(io.Discard, "", 0)

// switchPinger fails while down is set.
type switchPinger struct {
	down atomic.Bool
}

func (p *switchPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startHealth(t *testing.T, store repository.Pinger, interval time.Duration) (healthpb.HealthClient, func(context.Context) error) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	shutdown := Serve(lis, store, interval, discard)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	})
	return healthpb.NewHealthClient(conn), shutdown
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ServingWithSQLiteStore(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "grpchealth")
	client, _ := startHealth(t, repository.NewUserRepository(d), time.Hour)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, UsersService))
}

func TestHealth_FollowsStore(t *testing.T) {
	p := &switchPinger{}
	p.down.Store(true)
	client, _ := startHealth(t, p, 20*time.Millisecond)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, UsersService))

	p.down.Store(false)
	assert.Eventually(t, func() bool {
		return check(t, client, UsersService) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHealth_Shutdown(t *testing.T) {
	client, shutdown := startHealth(t, &switchPinger{}, time.Hour)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))

	cctx, ccancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer ccancel()
	_, err := client.Check(cctx, &healthpb.HealthCheckRequest{})
	assert.Error(t, err)
}

func TestStartGRPC_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := &config.Config{GRPC: config.GRPCConfig{Address: taken.Addr().String(), HealthInterval: time.Second}}
	_, err = StartGRPC(cfg, &switchPinger{}, discard)
	assert.Error(t, err)
}

func TestUnaryLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := NewUnaryLoggingInterceptor(log.New(&buf, "", 0))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return 123, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 123, resp)
	assert.Contains(t, buf.String(), "/grpc.health.v1.Health/Check ok")

	buf.Reset()
	_, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.True(t, strings.Contains(buf.String(), "failed") && strings.Contains(buf.String(), "boom"))
}
