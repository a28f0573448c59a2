// Package grpc exposes the gRPC health service used by orchestrators that
// probe over gRPC rather than HTTP.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
)

const defaultGracefulTimeout = 10 * time.Second

var keepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// HealthServer serves the standard grpc.health.v1 service on its own port.
// The HTTP /readyz endpoint covers humans and HTTP probes; this covers
// infrastructure that speaks gRPC health checking natively.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     logging.Logger

	mu      sync.Mutex
	started bool
}

// NewHealthServer binds a TCP listener on the given port and registers the
// health service in SERVING state.
func NewHealthServer(port int, logger logging.Logger) (*HealthServer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	addr := fmt.Sprintf(":%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	gs := grpc.NewServer(grpc.KeepaliveEnforcementPolicy(keepalivePolicy))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &HealthServer{
		grpcServer: gs,
		health:     hs,
		listener:   lis,
		logger:     logger,
	}, nil
}

// SetServing flips the overall serving status. The readiness loop calls this
// when a dependency check starts failing or recovers.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Start blocks serving health checks until Stop is called.
func (s *HealthServer) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("health server already started")
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("grpc health server listening",
		logging.String("addr", s.listener.Addr().String()))
	return s.grpcServer.Serve(s.listener)
}

// Stop marks the service NOT_SERVING so probes drain, then stops gracefully
// with a bounded wait.
func (s *HealthServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	gracefulCtx, cancel := context.WithTimeout(ctx, defaultGracefulTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("grpc health server stopped")
	case <-gracefulCtx.Done():
		s.logger.Warn("grpc health server graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// Addr returns the bound address, useful with port 0 in tests.
func (s *HealthServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
