package auth

import (
	"context"
	"crypto/tls"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

func newTestGRPCAuthenticator(t *testing.T, cfg *Config, opts ...AuthenticatorOption) GRPCAuthenticator {
	t.Helper()
	opts = append([]AuthenticatorOption{
		WithAuthenticatorLogger(observability.NopLogger()),
		WithAuthenticatorMetrics(NewMetricsWithRegisterer("test", prometheus.NewRegistry())),
	}, opts...)
	a, err := NewGRPCAuthenticator(cfg, opts...)
	require.NoError(t, err)
	return a
}

func incomingContext(authorization string) context.Context {
	if authorization == "" {
		return context.Background()
	}
	return metadata.NewIncomingContext(context.Background(),
		metadata.Pairs(MetadataAuthorization, authorization))
}

// mockServerStream is a minimal grpc.ServerStream for interceptor tests.
type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}

func TestGRPCAuthenticator_UnaryInterceptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *Config
		header   string
		method   string
		wantCode codes.Code
		wantUser string
	}{
		{
			name:     "valid token",
			config:   &Config{},
			header:   "Bearer goodtoken",
			method:   "/orders.v1.Orders/Get",
			wantCode: codes.OK,
			wantUser: "goodtoken",
		},
		{
			name:     "missing metadata",
			config:   &Config{},
			method:   "/orders.v1.Orders/Get",
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "invalid token",
			config:   &Config{},
			header:   "Bearer bad",
			method:   "/orders.v1.Orders/Get",
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "unsupported scheme with 400 policy",
			config:   &Config{UnsupportedSchemeStatus: 400},
			header:   "Weird xyz",
			method:   "/orders.v1.Orders/Get",
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "skipped method",
			config:   &Config{SkipPaths: []string{"/grpc.health.v1.Health/*"}},
			method:   "/grpc.health.v1.Health/Check",
			wantCode: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestGRPCAuthenticator(t, tt.config, WithValidator(staticValidator("goodtoken", "reader")))
			interceptor := a.UnaryInterceptor()

			var gotUser string
			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if sc, ok := SecurityContextFromContext(ctx); ok {
					gotUser = sc.PrincipalName()
				}
				return "ok", nil
			}

			resp, err := interceptor(incomingContext(tt.header), nil,
				&grpc.UnaryServerInfo{FullMethod: tt.method}, handler)

			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
				assert.Equal(t, tt.wantUser, gotUser)
			} else {
				assert.Nil(t, resp)
			}
		})
	}
}

func TestGRPCAuthenticator_ForbiddenMapsToPermissionDenied(t *testing.T) {
	t.Parallel()

	validator := ValidatorFunc(func(context.Context, Scheme, string, bool) (SecurityContext, error) {
		return nil, ErrForbidden
	})
	a := newTestGRPCAuthenticator(t, &Config{}, WithValidator(validator))

	_, err := a.UnaryInterceptor()(incomingContext("Bearer x"), nil,
		&grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(context.Context, interface{}) (interface{}, error) { return nil, nil })

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, "access denied", st.Message())
}

func TestGRPCAuthenticator_StreamInterceptor(t *testing.T) {
	t.Parallel()

	a := newTestGRPCAuthenticator(t, &Config{}, WithValidator(staticValidator("goodtoken")))
	interceptor := a.StreamInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/orders.v1.Orders/Watch"}

	var gotUser string
	handler := func(_ interface{}, ss grpc.ServerStream) error {
		sc, err := SecurityContextFromContextOrError(ss.Context())
		if err != nil {
			return err
		}
		gotUser = sc.PrincipalName()
		return nil
	}

	err := interceptor(nil, &mockServerStream{ctx: incomingContext("Bearer goodtoken")}, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "goodtoken", gotUser)

	err = interceptor(nil, &mockServerStream{ctx: incomingContext("")}, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPCAuthenticator_SecurePeer(t *testing.T) {
	t.Parallel()

	a := newTestGRPCAuthenticator(t, &Config{}, WithValidator(staticValidator("goodtoken")))

	ctx := incomingContext("Bearer goodtoken")
	sc, err := a.Authenticate(ctx)
	require.NoError(t, err)
	assert.False(t, sc.IsSecure())

	ctx = peer.NewContext(ctx, &peer.Peer{
		Addr:     &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4443},
		AuthInfo: credentials.TLSInfo{State: tls.ConnectionState{}},
	})
	sc, err = a.Authenticate(ctx)
	require.NoError(t, err)
	assert.True(t, sc.IsSecure())
}

func TestGRPCCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, codes.InvalidArgument, GRPCCode(400))
	assert.Equal(t, codes.Unauthenticated, GRPCCode(401))
	assert.Equal(t, codes.PermissionDenied, GRPCCode(403))
	assert.Equal(t, codes.Unauthenticated, GRPCCode(500))
}
