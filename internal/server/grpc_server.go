package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/config"
)

// GRPCServer is the gRPC listener with the interceptor chain, health
// service and every registered API.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
	log    *slog.Logger
	ready  atomic.Bool
}

// NewGRPCServer builds the server and registers all provided services.
//
// Unary chain: recover, logging, timeout, auth, prometheus.
// Stream chain: recover, logging, auth, prometheus.
// Reflection is only enabled outside production.
func NewGRPCServer(cfg *config.Config, log *slog.Logger, validator auth.Validator, registrars ...Registrar) *GRPCServer {
	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			Recover(log),
			UnaryLoggingInterceptor(log),
			WithTimeout(cfg.GRPC.Timeout),
			UnaryAuth(validator),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			StreamRecover(log),
			StreamLoggingInterceptor(log),
			StreamAuth(validator),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	for _, r := range registrars {
		r.Register(srv)
	}

	// enable reflection for easier debugging with grpcurl
	if cfg.App.ENV != "production" {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	return &GRPCServer{srv: srv, health: hs, addr: cfg.GRPC.Addr(), log: orGlobal(log)}
}

// Server exposes the underlying *grpc.Server.
func (s *GRPCServer) Server() *grpc.Server { return s.srv }

// Ready reports whether Serve holds a listener and Shutdown has not begun.
func (s *GRPCServer) Ready() bool { return s.ready.Load() }

// Serve marks the server SERVING and blocks until it stops.
// A graceful stop is not an error.
func (s *GRPCServer) Serve(lis net.Listener) error {
	defer s.ready.Store(false)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.ready.Store(true)
	s.log.Info("grpc listen start", slog.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *GRPCServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Shutdown marks the server NOT_SERVING and drains in-flight calls until ctx
// expires, then closes whatever is left.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.ready.Store(false)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc stopped")
	case <-ctx.Done():
		s.log.Warn("grpc force stop")
		s.srv.Stop()
	}
}
