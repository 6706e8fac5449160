// Package jwt validates JSON Web Tokens presented with the Bearer scheme
// and turns their claims into an auth.JWTContext.
//
// Signatures are verified with github.com/lestrrat-go/jwx/v2 against one
// key source: an HMAC secret, a PEM encoded public key, or a remote JWKS
// document cached and refreshed in the background. Issuer, audience,
// validity window and the signing algorithm allow-list are enforced before
// the claims are mapped.
package jwt
