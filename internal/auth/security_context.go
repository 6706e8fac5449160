package auth

import (
	"sort"
	"time"
)

// SecurityContext is the identity produced by a successful validation.
//
// It is a closed union of *TokenContext and *JWTContext; use a type switch
// to reach variant-specific data. Values are immutable once built and are
// scoped to a single request.
type SecurityContext interface {
	// PrincipalName identifies the caller: a user id, API key or token id.
	PrincipalName() string

	// IsUserInRole reports whether role is in the caller's scope.
	IsUserInRole(role string) bool

	// Roles returns the caller's scope, sorted.
	Roles() []string

	// IsSecure reports whether the request arrived over an encrypted transport.
	IsSecure() bool

	// AuthenticationScheme returns the scheme the caller authenticated with.
	AuthenticationScheme() Scheme

	securityContext()
}

// Scope is a set of role or permission names.
type Scope map[string]struct{}

// NewScope builds a scope. Order is irrelevant and duplicates collapse.
func NewScope(roles ...string) Scope {
	s := make(Scope, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether role is in the scope.
func (s Scope) Contains(role string) bool {
	_, ok := s[role]
	return ok
}

// ContainsAny reports whether at least one of roles is in the scope.
func (s Scope) ContainsAny(roles ...string) bool {
	for _, r := range roles {
		if s.Contains(r) {
			return true
		}
	}
	return false
}

// Sorted returns the scope members in lexical order.
func (s Scope) Sorted() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// TokenContext is the security context for an opaque bearer token, API key
// or username. It carries no temporal data.
type TokenContext struct {
	principal string
	scope     Scope
	secure    bool
	scheme    Scheme
}

// NewTokenContext creates a security context for an opaque credential.
// An empty principal fails with a *MissingFieldError.
func NewTokenContext(principal string, scope []string, secure bool, scheme Scheme) (*TokenContext, error) {
	if principal == "" {
		return nil, &MissingFieldError{Field: "principal"}
	}
	if !scheme.IsValid() {
		scheme = SchemeBearer
	}
	return &TokenContext{
		principal: principal,
		scope:     NewScope(scope...),
		secure:    secure,
		scheme:    scheme,
	}, nil
}

// PrincipalName returns the raw token or user id.
func (c *TokenContext) PrincipalName() string { return c.principal }

// IsUserInRole reports whether role is in the scope.
func (c *TokenContext) IsUserInRole(role string) bool { return c.scope.Contains(role) }

// Roles returns the scope, sorted.
func (c *TokenContext) Roles() []string { return c.scope.Sorted() }

// IsSecure reports whether the request was transport-encrypted.
func (c *TokenContext) IsSecure() bool { return c.secure }

// AuthenticationScheme returns the scheme used.
func (c *TokenContext) AuthenticationScheme() Scheme { return c.scheme }

func (*TokenContext) securityContext() {}

// JWTClaims is the input to NewJWTContext.
type JWTClaims struct {
	// Issuer is the "iss" claim.
	Issuer string

	// Subject is the "sub" claim. Required.
	Subject string

	// Audience is the "aud" claim.
	Audience []string

	// NotBefore is the "nbf" claim. Required.
	NotBefore time.Time

	// ExpirationTime is the "exp" claim. Zero means no expiry.
	ExpirationTime time.Time

	// IssuedAt is the "iat" claim.
	IssuedAt time.Time

	// JWTID is the "jti" claim and the principal name. Required.
	JWTID string

	// Scope lists the granted roles. Required: nil means absent, an empty
	// non-nil slice means an empty grant.
	Scope []string

	// RefreshCount is how many times the token has been refreshed.
	RefreshCount int

	// RefreshLimit is how many refreshes the token may go through.
	RefreshLimit int

	// Secure reports whether the request was transport-encrypted.
	Secure bool

	// Scheme defaults to SchemeBearer.
	Scheme Scheme
}

// JWTContext is the security context for a validated JSON Web Token.
type JWTContext struct {
	claims JWTClaims
	scope  Scope
}

// NewJWTContext validates the required claims and builds a JWTContext.
// Missing jti, scope, nbf or sub fails with a *MissingFieldError naming the field.
func NewJWTContext(claims JWTClaims) (*JWTContext, error) {
	switch {
	case claims.JWTID == "":
		return nil, &MissingFieldError{Field: "jti"}
	case claims.Scope == nil:
		return nil, &MissingFieldError{Field: "scope"}
	case claims.NotBefore.IsZero():
		return nil, &MissingFieldError{Field: "nbf"}
	case claims.Subject == "":
		return nil, &MissingFieldError{Field: "sub"}
	}

	if !claims.Scheme.IsValid() {
		claims.Scheme = SchemeBearer
	}
	claims.Audience = append([]string(nil), claims.Audience...)
	scope := NewScope(claims.Scope...)
	claims.Scope = scope.Sorted()

	return &JWTContext{claims: claims, scope: scope}, nil
}

// PrincipalName returns the token id.
func (c *JWTContext) PrincipalName() string { return c.claims.JWTID }

// IsUserInRole reports whether role is in the scope.
func (c *JWTContext) IsUserInRole(role string) bool { return c.scope.Contains(role) }

// Roles returns the scope, sorted.
func (c *JWTContext) Roles() []string { return c.scope.Sorted() }

// IsSecure reports whether the request was transport-encrypted.
func (c *JWTContext) IsSecure() bool { return c.claims.Secure }

// AuthenticationScheme returns the scheme used.
func (c *JWTContext) AuthenticationScheme() Scheme { return c.claims.Scheme }

func (*JWTContext) securityContext() {}

// Claims returns a copy of the claims the context was built from.
func (c *JWTContext) Claims() JWTClaims {
	out := c.claims
	out.Audience = append([]string(nil), c.claims.Audience...)
	out.Scope = append([]string(nil), c.claims.Scope...)
	return out
}

// Subject returns the "sub" claim.
func (c *JWTContext) Subject() string { return c.claims.Subject }

// Issuer returns the "iss" claim.
func (c *JWTContext) Issuer() string { return c.claims.Issuer }

// NotBefore returns the start of the validity window.
func (c *JWTContext) NotBefore() time.Time { return c.claims.NotBefore }

// ExpiresAt returns the end of the validity window; zero means none.
func (c *JWTContext) ExpiresAt() time.Time { return c.claims.ExpirationTime }

// RefreshCount returns how many times the token has been refreshed.
func (c *JWTContext) RefreshCount() int { return c.claims.RefreshCount }

// RefreshLimit returns how many refreshes the token may go through.
func (c *JWTContext) RefreshLimit() int { return c.claims.RefreshLimit }

// IsEligibleForRefreshment reports whether the token may still be exchanged
// for a renewed one.
func (c *JWTContext) IsEligibleForRefreshment() bool {
	return c.claims.RefreshCount < c.claims.RefreshLimit
}

// IsExpired reports whether now is at or past the expiration time.
func (c *JWTContext) IsExpired(now time.Time) bool {
	exp := c.claims.ExpirationTime
	return !exp.IsZero() && !now.Before(exp)
}

// IsActive reports whether now falls inside [nbf, exp).
func (c *JWTContext) IsActive(now time.Time) bool {
	return !now.Before(c.claims.NotBefore) && !c.IsExpired(now)
}

// IsNil reports whether sc is nil or a nil pointer of either variant.
// Either form is an anonymous caller.
func IsNil(sc SecurityContext) bool {
	switch v := sc.(type) {
	case nil:
		return true
	case *TokenContext:
		return v == nil
	case *JWTContext:
		return v == nil
	}
	return false
}

// Ensure both variants implement SecurityContext.
var (
	_ SecurityContext = (*TokenContext)(nil)
	_ SecurityContext = (*JWTContext)(nil)
)
