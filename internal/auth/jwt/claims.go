package jwt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/authgate/internal/auth"
)

// toClaims maps a verified token onto auth.JWTClaims.
func (v *Validator) toClaims(tok jwt.Token, secure bool, scheme auth.Scheme) (auth.JWTClaims, error) {
	claims := auth.JWTClaims{
		Issuer:         tok.Issuer(),
		Subject:        tok.Subject(),
		Audience:       tok.Audience(),
		NotBefore:      tok.NotBefore(),
		ExpirationTime: tok.Expiration(),
		IssuedAt:       tok.IssuedAt(),
		JWTID:          tok.JwtID(),
		Secure:         secure,
		Scheme:         scheme,
	}

	if raw, ok := tok.Get(v.config.scopeClaim()); ok {
		scope, err := scopeValue(raw)
		if err != nil {
			return claims, fmt.Errorf("%s: %w", v.config.scopeClaim(), err)
		}
		claims.Scope = scope
	}

	var err error
	if claims.RefreshCount, err = intClaim(tok, v.config.refreshCountClaim()); err != nil {
		return claims, err
	}
	if claims.RefreshLimit, err = intClaim(tok, v.config.refreshLimitClaim()); err != nil {
		return claims, err
	}

	return claims, nil
}

// scopeValue accepts a space-delimited string or an array of strings. The
// result is never nil for a present claim.
func scopeValue(raw interface{}) ([]string, error) {
	switch val := raw.(type) {
	case string:
		return append([]string{}, strings.Fields(val)...), nil
	case []string:
		return append([]string{}, val...), nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, ErrTokenInvalidClaim
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, ErrTokenInvalidClaim
	}
}

// intClaim reads a non-negative integer claim. Absent claims are zero.
func intClaim(tok jwt.Token, name string) (int, error) {
	raw, ok := tok.Get(name)
	if !ok {
		return 0, nil
	}

	var n float64
	switch val := raw.(type) {
	case float64:
		n = val
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, ErrTokenInvalidClaim)
		}
		n = f
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, ErrTokenInvalidClaim)
		}
		n = float64(i)
	default:
		return 0, fmt.Errorf("%s: %w", name, ErrTokenInvalidClaim)
	}

	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s: %w", name, ErrTokenInvalidClaim)
	}
	return int(n), nil
}
