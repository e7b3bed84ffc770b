// Package grpc exposes the token-authenticated gRPC surface: the standard
// health service and the Identity service, guarded by an access-token
// interceptor that shares TokenIssuer.Verify with the HTTP boundary.
package grpc

import (
	"context"
	"net"

	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(accessToken string) (auth.Identity, error)
}

type GRPCServer struct {
	address  string
	verifier TokenVerifier
	health   *health.Server
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, v TokenVerifier) *GRPCServer {
	return &GRPCServer{
		address:  a,
		verifier: v,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

// SetServing flips the overall health status reported to probes.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(identityServiceName, st)
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)
	srv.RegisterService(&identityServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()
	s.SetServing(true)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
