package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alan-mat/scholar/internal/quota"
	"github.com/alan-mat/scholar/internal/rpc"
	"github.com/alan-mat/scholar/internal/tasks"
	"github.com/alan-mat/scholar/internal/transport"
)

type ServerConfig struct {
	ListenHost string
	ListenPort int

	// IdleTimeout fails a call when its message stream stays silent this long.
	IdleTimeout time.Duration

	// MaxReadFails is the number of consecutive stream read errors tolerated.
	MaxReadFails int
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		ListenPort:   50051,
		IdleTimeout:  time.Minute,
		MaxReadFails: 10,
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// Server implements the GenerationService
type Server struct {
	rpc.UnimplementedGenerationServiceServer

	config ServerConfig

	transport  transport.Transport
	dispatcher tasks.Dispatcher
	quota      quota.Limiter

	health *health.Server
}

func New(config ServerConfig, t transport.Transport, d tasks.Dispatcher, l quota.Limiter) *Server {
	if l == nil {
		l = quota.Unlimited()
	}
	if config.MaxReadFails <= 0 {
		config.MaxReadFails = DefaultConfig().MaxReadFails
	}
	return &Server{
		config:     config,
		transport:  t,
		dispatcher: d,
		quota:      l,
		health:     health.NewServer(),
	}
}

// Register adds the generation and health services to gs.
func (s *Server) Register(gs *grpc.Server) {
	rpc.RegisterGenerationServiceServer(gs, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.health.SetServingStatus(rpc.GenerationService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer()
	s.Register(grpcServer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "listener", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			slog.Error("failed to serve", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("server shutting down")
		s.health.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		slog.Error("failed to start server", "err", err)
		return err
	}
	return s.Serve(ctx, lis)
}
