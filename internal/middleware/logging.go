package middleware

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// principalRef is filled in by the inner handler so the access log, which
// runs outside the authentication filter, can report the caller.
type principalRef struct {
	principal string
	scheme    string
}

type principalRefKey struct{}

// Logging returns a middleware that logs HTTP requests. Place it outside
// the authentication filter and wrap the innermost handler with
// CapturePrincipal to have the caller logged. Credentials and query
// strings are never logged.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ref := &principalRef{}
			r = r.WithContext(context.WithValue(r.Context(), principalRefKey{}, ref))

			rw := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rw.status),
				observability.Int("size", rw.size),
				observability.Duration("duration", time.Since(start)),
			}
			if ref.principal != "" {
				fields = append(fields,
					observability.String("principal", ref.principal),
					observability.String("scheme", ref.scheme),
				)
			}
			logger.WithContext(r.Context()).Info("http request", fields...)
		})
	}
}

// CapturePrincipal records the authenticated caller for Logging.
func CapturePrincipal() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ref, ok := r.Context().Value(principalRefKey{}).(*principalRef); ok {
				if sc, ok := auth.SecurityContextFromContext(r.Context()); ok {
					ref.principal = sc.PrincipalName()
					ref.scheme = sc.AuthenticationScheme().Label()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingUnaryInterceptor logs gRPC calls. It must run after the
// authentication interceptor to see the caller.
func LoggingUnaryInterceptor(logger observability.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, logger, "grpc request", info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// LoggingStreamInterceptor logs gRPC streams when they end. It must run
// after the authentication interceptor to see the caller.
func LoggingStreamInterceptor(logger observability.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), logger, "grpc stream", info.FullMethod, err, time.Since(start))
		return err
	}
}

func logCall(ctx context.Context, logger observability.Logger, msg, method string, err error, d time.Duration) {
	fields := []observability.Field{
		observability.String("grpc_method", method),
		observability.String("code", status.Code(err).String()),
		observability.Duration("duration", d),
	}
	if sc, ok := auth.SecurityContextFromContext(ctx); ok {
		fields = append(fields, observability.String("principal", sc.PrincipalName()))
	}
	logger.WithContext(ctx).Info(msg, fields...)
}
