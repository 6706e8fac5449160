package auth

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

// GRPCAuthenticator handles authentication for gRPC requests.
type GRPCAuthenticator interface {
	// Authenticate authenticates a gRPC request.
	Authenticate(ctx context.Context) (SecurityContext, error)

	// UnaryInterceptor returns a unary server interceptor for authentication.
	UnaryInterceptor() grpc.UnaryServerInterceptor

	// StreamInterceptor returns a stream server interceptor for authentication.
	StreamInterceptor() grpc.StreamServerInterceptor
}

// grpcAuthenticator implements the GRPCAuthenticator interface.
type grpcAuthenticator struct {
	pipeline
}

// NewGRPCAuthenticator creates a new gRPC authenticator. It accepts the
// same options as NewAuthenticator.
func NewGRPCAuthenticator(config *Config, opts ...AuthenticatorOption) (GRPCAuthenticator, error) {
	p, err := newPipeline(config, opts)
	if err != nil {
		return nil, err
	}
	return &grpcAuthenticator{pipeline: *p}, nil
}

// Authenticate authenticates a gRPC request.
func (a *grpcAuthenticator) Authenticate(ctx context.Context) (SecurityContext, error) {
	ctx, span := authTracer.Start(ctx, "auth.authenticate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("auth.transport", "grpc")),
	)
	defer span.End()

	sc, err := a.run(ctx, "grpc", func() (*Credentials, error) {
		return a.extractor.ExtractFromGRPC(ctx)
	}, peerIsSecure(ctx))
	recordSpan(span, sc, err)
	return sc, err
}

// UnaryInterceptor returns a unary server interceptor for authentication.
func (a *grpcAuthenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (interface{}, error) {
		if a.config.ShouldSkipPath(info.FullMethod) {
			return handler(ctx, req)
		}

		sc, err := a.Authenticate(ctx)
		if err != nil {
			return nil, a.toGRPCError(info.FullMethod, err)
		}

		return handler(ContextWithSecurityContext(ctx, sc), req)
	}
}

// StreamInterceptor returns a stream server interceptor for authentication.
func (a *grpcAuthenticator) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if a.config.ShouldSkipPath(info.FullMethod) {
			return handler(srv, ss)
		}

		ctx := ss.Context()
		sc, err := a.Authenticate(ctx)
		if err != nil {
			return a.toGRPCError(info.FullMethod, err)
		}

		wrapped := &authenticatedServerStream{
			ServerStream: ss,
			ctx:          ContextWithSecurityContext(ctx, sc),
		}

		return handler(srv, wrapped)
	}
}

// toGRPCError converts an authentication error to a gRPC status error.
func (a *grpcAuthenticator) toGRPCError(method string, err error) error {
	statusCode, message := a.config.failureStatus(err)

	a.logger.Warn("authentication failed",
		observability.String("grpc_method", method),
		observability.Int("status", statusCode),
		observability.String("reason", Reason(err)),
	)

	return status.Error(GRPCCode(statusCode), message)
}

// GRPCCode maps an HTTP failure status to a gRPC code.
func GRPCCode(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusForbidden:
		return codes.PermissionDenied
	default:
		return codes.Unauthenticated
	}
}

// peerIsSecure reports whether the gRPC peer connected over TLS.
func peerIsSecure(ctx context.Context) bool {
	p, ok := peer.FromContext(ctx)
	if !ok || p.AuthInfo == nil {
		return false
	}
	_, ok = p.AuthInfo.(credentials.TLSInfo)
	return ok
}

// authenticatedServerStream wraps a grpc.ServerStream with an authenticated context.
type authenticatedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the authenticated context.
func (s *authenticatedServerStream) Context() context.Context {
	return s.ctx
}

// Ensure grpcAuthenticator implements GRPCAuthenticator.
var _ GRPCAuthenticator = (*grpcAuthenticator)(nil)
