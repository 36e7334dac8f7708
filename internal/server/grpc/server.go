package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/realmd/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address   string
	directory RealmDirectory
	accounts  AccountService
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
}

// NewGRPCServer wires the realm directory and, when accounts is non-nil,
// the account admin service.
func NewGRPCServer(address string, l logging.Logger, directory RealmDirectory, accounts AccountService, secretKey string) *GRPCServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(RealmDirectoryService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{
		address:   address,
		directory: directory,
		accounts:  accounts,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
		health:    h,
	}
}

// SetServing flips the health status once the realm registry holds data.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(RealmDirectoryService, st)
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	srv.RegisterService(&RealmDirectoryServiceDesc, directoryServer{s: s})
	if s.accounts != nil {
		srv.RegisterService(&AccountAdminServiceDesc, adminServer{s: s})
	}
	healthpb.RegisterHealthServer(srv, s.health)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
