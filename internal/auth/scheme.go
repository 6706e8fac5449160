package auth

import "strings"

// Scheme is an HTTP authentication scheme named in the Authorization header.
type Scheme int

// Supported authentication schemes.
const (
	// SchemeUnknown is the zero value and never matches a header label.
	SchemeUnknown Scheme = iota

	// SchemeBasic is the Basic scheme (RFC 7617).
	SchemeBasic

	// SchemeBearer is OAuth 2.0 bearer token usage (RFC 6750) and the JWT
	// bearer profile (RFC 7523).
	SchemeBearer

	// SchemeDigest is HTTP Digest access authentication (RFC 7616).
	SchemeDigest

	// SchemeOAuth is OAuth 1.0 authentication (RFC 5849).
	SchemeOAuth

	// SchemeHOBA is HTTP Origin-Bound Authentication (RFC 7486).
	SchemeHOBA

	// SchemeMutual is Mutual Authentication Protocol for HTTP (RFC 8120).
	SchemeMutual

	// SchemeNegotiate is SPNEGO-based Kerberos and NTLM (RFC 4559).
	SchemeNegotiate

	// SchemeScramSHA1 is SCRAM-SHA-1 (RFC 5802).
	SchemeScramSHA1

	// SchemeScramSHA256 is SCRAM-SHA-256 (RFC 7677).
	SchemeScramSHA256

	// SchemeVAPID is Voluntary Application Server Identification (RFC 8292).
	SchemeVAPID
)

var schemeNames = [...]string{
	SchemeUnknown:     "UNKNOWN",
	SchemeBasic:       "BASIC",
	SchemeBearer:      "BEARER",
	SchemeDigest:      "DIGEST",
	SchemeOAuth:       "OAUTH",
	SchemeHOBA:        "HOBA",
	SchemeMutual:      "MUTUAL",
	SchemeNegotiate:   "NEGOTIATE",
	SchemeScramSHA1:   "SCRAM_SHA_1",
	SchemeScramSHA256: "SCRAM_SHA_256",
	SchemeVAPID:       "VAPID",
}

// schemeLabels holds the IANA registry spelling of each scheme.
var schemeLabels = [...]string{
	SchemeUnknown:     "",
	SchemeBasic:       "Basic",
	SchemeBearer:      "Bearer",
	SchemeDigest:      "Digest",
	SchemeOAuth:       "OAuth",
	SchemeHOBA:        "HOBA",
	SchemeMutual:      "Mutual",
	SchemeNegotiate:   "Negotiate",
	SchemeScramSHA1:   "SCRAM-SHA-1",
	SchemeScramSHA256: "SCRAM-SHA-256",
	SchemeVAPID:       "vapid",
}

var schemesByName = func() map[string]Scheme {
	m := make(map[string]Scheme, len(schemeNames)-1)
	for _, s := range Schemes() {
		m[schemeNames[s]] = s
	}
	return m
}()

// Schemes returns every supported scheme in declaration order.
func Schemes() []Scheme {
	return []Scheme{
		SchemeBasic,
		SchemeBearer,
		SchemeDigest,
		SchemeOAuth,
		SchemeHOBA,
		SchemeMutual,
		SchemeNegotiate,
		SchemeScramSHA1,
		SchemeScramSHA256,
		SchemeVAPID,
	}
}

// ParseScheme resolves a scheme label. Matching ignores case and treats
// '-' and '_' as equivalent. Unrecognized labels return (SchemeUnknown, false)
// so callers can tell an unknown scheme apart from a malformed header.
func ParseScheme(text string) (Scheme, bool) {
	name := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(text)), "-", "_")
	s, ok := schemesByName[name]
	return s, ok
}

// String returns the enumerated name, e.g. "SCRAM_SHA_256".
func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return schemeNames[SchemeUnknown]
	}
	return schemeNames[s]
}

// Label returns the header spelling of the scheme, e.g. "Bearer".
func (s Scheme) Label() string {
	if s < 0 || int(s) >= len(schemeLabels) {
		return ""
	}
	return schemeLabels[s]
}

// IsValid reports whether s is one of the supported schemes.
func (s Scheme) IsValid() bool {
	return s > SchemeUnknown && int(s) < len(schemeNames)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, ok := ParseScheme(string(text))
	if !ok {
		return NewAuthError(string(text), "unrecognized scheme")
	}
	*s = parsed
	return nil
}
