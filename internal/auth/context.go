package auth

import "context"

// Context key type for the security context.
type securityContextKey struct{}

// ContextWithSecurityContext attaches sc to ctx, replacing any context
// attached earlier in the chain.
func ContextWithSecurityContext(ctx context.Context, sc SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// SecurityContextFromContext returns the attached security context.
// A false result means the request is anonymous.
func SecurityContextFromContext(ctx context.Context) (SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(SecurityContext)
	if !ok || IsNil(sc) {
		return nil, false
	}
	return sc, true
}

// SecurityContextFromContextOrError returns the attached security context
// or ErrNoSecurityContext.
func SecurityContextFromContextOrError(ctx context.Context) (SecurityContext, error) {
	sc, ok := SecurityContextFromContext(ctx)
	if !ok {
		return nil, ErrNoSecurityContext
	}
	return sc, nil
}

type transportSecureKey struct{}

// ContextWithTransportSecure records whether the request arrived over an
// encrypted transport. The pipeline sets it before calling a validator so
// label-shaped validators, which do not receive the flag, can read it.
func ContextWithTransportSecure(ctx context.Context, secure bool) context.Context {
	return context.WithValue(ctx, transportSecureKey{}, secure)
}

// TransportSecureFromContext reports the flag set by ContextWithTransportSecure.
func TransportSecureFromContext(ctx context.Context) bool {
	secure, _ := ctx.Value(transportSecureKey{}).(bool)
	return secure
}
