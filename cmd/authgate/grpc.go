package main

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/authz"
	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/middleware"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// healthServicePrefix is the method prefix of the standard health service,
// which answers without authentication.
var healthServicePrefix = "/" + healthpb.Health_ServiceDesc.ServiceName + "/"

// newGRPCServer builds a gRPC server with the authentication and
// authorization interceptors and the health service registered.
func newGRPCServer(
	cfg *config.GRPCConfig,
	authn auth.GRPCAuthenticator,
	authorizer *authz.Authorizer,
	logger observability.Logger,
) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.RecoveryUnaryInterceptor(logger),
			middleware.RequestIDUnaryInterceptor(),
			exceptHealth(authn.UnaryInterceptor()),
			middleware.LoggingUnaryInterceptor(logger),
			exceptHealth(authorizer.UnaryInterceptor()),
		),
		grpc.ChainStreamInterceptor(
			middleware.RecoveryStreamInterceptor(logger),
			middleware.RequestIDStreamInterceptor(),
			exceptHealthStream(authn.StreamInterceptor()),
			middleware.LoggingStreamInterceptor(logger),
			exceptHealthStream(authorizer.StreamInterceptor()),
		),
	}

	if cfg.TLS != nil {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("grpc tls: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, nil
}

func exceptHealth(next grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		return next(ctx, req, info, handler)
	}
}

func exceptHealthStream(next grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(srv, ss)
		}
		return next(srv, ss, info, handler)
	}
}

// stopGRPC drains in-flight calls until ctx expires, then forces a stop.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
}
