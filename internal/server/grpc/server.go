package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves the standard gRPC health service. It reports
// NOT_SERVING until ready is closed.
type HealthServer struct {
	address string
	ready   <-chan struct{}
	health  *health.Server
	logger  logging.Logger
}

func NewHealthServer(a string, l logging.Logger, ready <-chan struct{}) *HealthServer {
	return &HealthServer{
		address: a,
		ready:   ready,
		health:  health.NewServer(),
		logger:  l.With("module", "grpc_server"),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		select {
		case <-s.ready:
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			s.logger.Info(ctx, "Record store attached, serving")
		case <-ctx.Done():
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
