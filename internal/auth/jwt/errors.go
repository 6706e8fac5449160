package jwt

import "errors"

// JWT signing algorithm constants.
const (
	AlgRS256 = "RS256"
	AlgRS384 = "RS384"
	AlgRS512 = "RS512"
	AlgPS256 = "PS256"
	AlgPS384 = "PS384"
	AlgPS512 = "PS512"
	AlgES256 = "ES256"
	AlgES384 = "ES384"
	AlgES512 = "ES512"
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
	AlgEdDSA = "EdDSA"
)

// Sentinel errors for JWT validation. All of them wrap
// auth.ErrInvalidCredentials when returned from Validate.
var (
	// ErrTokenMalformed indicates that the token is not a compact JWS.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrUnsupportedAlgorithm indicates a signing algorithm outside the allow-list.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not allowed")

	// ErrTokenInvalidAudience indicates that no audience matched.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrTokenInvalidClaim indicates that a mapped claim has the wrong type.
	ErrTokenInvalidClaim = errors.New("claim value is invalid")
)

var (
	hmacAlgorithms = []string{AlgHS256, AlgHS384, AlgHS512}
	asymAlgorithms = []string{
		AlgRS256, AlgRS384, AlgRS512,
		AlgPS256, AlgPS384, AlgPS512,
		AlgES256, AlgES384, AlgES512,
		AlgEdDSA,
	}
)
