package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/kvaesitso/kvs/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server manages the gRPC server lifecycle for a profile daemon.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string
	bus        *bus.Bus
	logger     *zap.Logger
	stopWatch  func()
}

// NewServer creates a gRPC server bound to the profile's Unix domain socket.
func NewServer(p Params, launcher *api.Launcher, b *bus.Bus, logger *zap.Logger) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = profile.SocketPath(p.Profile)
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	launcher.Register(srv)
	hs := health.NewServer()
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		grpcServer: srv,
		health:     hs,
		listener:   listener,
		socketPath: socketPath,
		bus:        b,
		logger:     logger,
	}, nil
}

// Start serves gRPC requests in the background and keeps the health status
// in step with the daemon state.
func (s *Server) Start() {
	if s.bus != nil {
		ch, unsub := s.bus.Subscribe(16, bus.KindStatusChanged)
		done := make(chan struct{})
		s.stopWatch = func() {
			unsub()
			close(done)
		}
		go func() {
			for {
				select {
				case evt := <-ch:
					if change, ok := evt.Payload.(status.StatusChange); ok {
						s.SetState(change.To)
					}
				case <-done:
					return
				}
			}
		}()
	}

	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			s.logger.Error("gRPC server error", zap.Error(err))
		}
	}()
}

// SetState maps a daemon state to the health status of the launcher service.
// Searches are served while READY or DEGRADED.
func (s *Server) SetState(state status.State) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if state == status.Ready || state == status.Degraded {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(api.ServiceName, st)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Live search streams only end when their clients go away.
		s.grpcServer.Stop()
	}
	_ = os.Remove(s.socketPath)
}
