package api

import (
	"context"
	"fmt"
	"net"

	"tourbook/internal/config"
	"tourbook/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is reported next to the overall ("") status.
const HealthServiceName = "tourbook.v1.Tourbook"

// GRPCServer exposes the standard health service to orchestrators and load
// balancers. It starts NOT_SERVING; call SetServing once the store answers.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	log      zerolog.Logger
}

func NewGRPCServer(cfg *config.APIConfig, limiter domain.RateLimiter, logger *zerolog.Logger) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	s := newGRPCServer(lis, limiter, logger)
	if cfg.GRPC.Reflection {
		reflection.Register(s.server)
	}
	return s, nil
}

func newGRPCServer(lis net.Listener, limiter domain.RateLimiter, logger *zerolog.Logger) *GRPCServer {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "grpc").Logger()
	}

	s := &GRPCServer{
		server:   grpc.NewServer(grpc.ChainUnaryInterceptor(unaryInterceptors(limiter, log)...)),
		health:   health.NewServer(),
		listener: lis,
		log:      log,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the named service status.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	for _, name := range []string{"", HealthServiceName} {
		s.health.SetServingStatus(name, st)
	}
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve blocks until the server stops.
func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

// Shutdown reports NOT_SERVING to watchers, then drains in-flight calls.
// Calls still running when ctx ends are cut off.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	}
}
