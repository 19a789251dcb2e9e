package grpcx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheckAgainstLocalServer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv, hs := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	check := HealthCheck(lis.Addr().String(), "")
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected serving, got %v", err)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := check(context.Background()); err == nil {
		t.Fatal("expected error once not serving")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("empty id must not be stored")
	}
	ctx = WithRequestID(ctx, "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("id not stored")
	}
	if NewRequestID() == NewRequestID() {
		t.Fatal("ids must differ")
	}
}
