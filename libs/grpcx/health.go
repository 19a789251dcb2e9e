package grpcx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds an instrumented gRPC server with the standard health service registered.
// The returned health server lets the caller flip serving status during shutdown.
func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLogInterceptor(logger),
		),
	}
	srv := grpc.NewServer(append(opts, extra...)...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// HealthCheck returns a readiness probe for a remote gRPC service. The connection is
// dialed lazily on first use and reused afterwards.
func HealthCheck(addr, service string) func(context.Context) error {
	var (
		mu   sync.Mutex
		conn *grpc.ClientConn
	)
	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		if conn == nil {
			c, err := Dial(ctx, addr, DialOptions{Timeout: 2 * time.Second})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			conn = c
		}

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("%s is %s", addr, resp.GetStatus())
		}
		return nil
	}
}
