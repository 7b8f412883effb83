package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/logging"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds a gRPC server exposing AdminService and the standard
// health service. Every other method requires a bearer token.
func NewServer(jwtSecret string, admin *AdminServer) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(jwtSecret, healthCheckMethod)),
	)
	RegisterAdminService(srv, admin)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

// StartGRPC listens on addr and serves in the background. The returned
// function stops the server, forcing it down when ctx expires first.
func StartGRPC(addr, jwtSecret string, admin *AdminServer) (func(context.Context) error, error) {
	if addr == "" {
		addr = ":50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv, hs := NewServer(jwtSecret, admin)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logging.Errorf("grpc serve: %v", err)
		}
	}()
	logging.Infof("gRPC server listening on %s", lis.Addr())

	return func(ctx context.Context) error {
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
	}, nil
}
