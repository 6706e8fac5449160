package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClaims(t0 time.Time) JWTClaims {
	return JWTClaims{
		JWTID:     "t1",
		Scope:     []string{"admin"},
		NotBefore: t0,
		Subject:   "u1",
	}
}

func TestNewJWTContext_RequiredFields(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sc, err := NewJWTContext(validClaims(t0))
	require.NoError(t, err)
	assert.Equal(t, "t1", sc.PrincipalName())
	assert.Equal(t, "u1", sc.Subject())
	assert.True(t, sc.IsUserInRole("admin"))
	assert.Equal(t, SchemeBearer, sc.AuthenticationScheme())
	assert.Equal(t, t0, sc.NotBefore())
	assert.True(t, sc.ExpiresAt().IsZero())
	assert.False(t, sc.IsSecure())

	tests := []struct {
		field  string
		mutate func(*JWTClaims)
	}{
		{"jti", func(c *JWTClaims) { c.JWTID = "" }},
		{"scope", func(c *JWTClaims) { c.Scope = nil }},
		{"nbf", func(c *JWTClaims) { c.NotBefore = time.Time{} }},
		{"sub", func(c *JWTClaims) { c.Subject = "" }},
	}

	for _, tt := range tests {
		t.Run("missing "+tt.field, func(t *testing.T) {
			t.Parallel()

			claims := validClaims(t0)
			tt.mutate(&claims)

			sc, err := NewJWTContext(claims)
			assert.Nil(t, sc)

			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
			assert.ErrorIs(t, err, ErrMissingClaim)
		})
	}
}

func TestNewJWTContext_EmptyScopeIsPresent(t *testing.T) {
	t.Parallel()

	claims := validClaims(time.Now())
	claims.Scope = []string{}

	sc, err := NewJWTContext(claims)
	require.NoError(t, err)
	assert.Empty(t, sc.Roles())
	assert.False(t, sc.IsUserInRole("admin"))
}

func TestJWTContext_IsEligibleForRefreshment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count, limit int
		want         bool
	}{
		{0, 3, true},
		{2, 3, true},
		{3, 3, false},
		{4, 3, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		claims := validClaims(time.Now())
		claims.RefreshCount = tt.count
		claims.RefreshLimit = tt.limit

		sc, err := NewJWTContext(claims)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sc.IsEligibleForRefreshment(), "count=%d limit=%d", tt.count, tt.limit)
		assert.Equal(t, tt.count, sc.RefreshCount())
		assert.Equal(t, tt.limit, sc.RefreshLimit())
	}
}

func TestJWTContext_ValidityWindow(t *testing.T) {
	t.Parallel()

	nbf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := nbf.Add(time.Hour)

	claims := validClaims(nbf)
	claims.ExpirationTime = exp
	sc, err := NewJWTContext(claims)
	require.NoError(t, err)

	assert.False(t, sc.IsActive(nbf.Add(-time.Second)))
	assert.True(t, sc.IsActive(nbf))
	assert.True(t, sc.IsActive(exp.Add(-time.Second)))
	assert.False(t, sc.IsActive(exp))
	assert.True(t, sc.IsExpired(exp))
	assert.False(t, sc.IsExpired(nbf))

	noExp, err := NewJWTContext(validClaims(nbf))
	require.NoError(t, err)
	assert.False(t, noExp.IsExpired(nbf.Add(100*365*24*time.Hour)))
}

func TestJWTContext_Immutable(t *testing.T) {
	t.Parallel()

	claims := validClaims(time.Now())
	claims.Scope = []string{"b", "a", "a"}
	claims.Audience = []string{"api"}
	claims.Issuer = "https://issuer.example"
	claims.Secure = true
	claims.Scheme = SchemeDigest

	sc, err := NewJWTContext(claims)
	require.NoError(t, err)

	claims.Scope[0] = "mutated"
	claims.Audience[0] = "mutated"

	got := sc.Claims()
	assert.Equal(t, []string{"a", "b"}, got.Scope)
	assert.Equal(t, []string{"api"}, got.Audience)

	got.Scope[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, sc.Roles())
	assert.Equal(t, "https://issuer.example", sc.Issuer())
	assert.True(t, sc.IsSecure())
	assert.Equal(t, SchemeDigest, sc.AuthenticationScheme())
}

func TestNewTokenContext(t *testing.T) {
	t.Parallel()

	sc, err := NewTokenContext("goodtoken", []string{"reader", "reader", "writer"}, true, SchemeBearer)
	require.NoError(t, err)
	assert.Equal(t, "goodtoken", sc.PrincipalName())
	assert.Equal(t, []string{"reader", "writer"}, sc.Roles())
	assert.True(t, sc.IsUserInRole("writer"))
	assert.False(t, sc.IsUserInRole("admin"))
	assert.True(t, sc.IsSecure())

	sc, err = NewTokenContext("key", nil, false, SchemeUnknown)
	require.NoError(t, err)
	assert.Equal(t, SchemeBearer, sc.AuthenticationScheme())
	assert.Empty(t, sc.Roles())

	_, err = NewTokenContext("", nil, false, SchemeBearer)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "principal", missing.Field)
}

func TestScope(t *testing.T) {
	t.Parallel()

	s := NewScope("writer", "reader", "writer")
	assert.Len(t, s, 2)
	assert.True(t, s.Contains("reader"))
	assert.True(t, s.ContainsAny("admin", "writer"))
	assert.False(t, s.ContainsAny("admin"))
	assert.False(t, s.ContainsAny())
	assert.Equal(t, []string{"reader", "writer"}, s.Sorted())
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	var tok *TokenContext
	var jwt *JWTContext

	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(tok))
	assert.True(t, IsNil(jwt))

	sc, err := NewTokenContext("p", nil, false, SchemeBearer)
	require.NoError(t, err)
	assert.False(t, IsNil(sc))
}
