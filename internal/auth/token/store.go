package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no record exists for a token.
var ErrNotFound = errors.New("token not found")

// Record is the stored state of an issued token.
type Record struct {
	// Principal is the name the token authenticates as.
	Principal string `json:"principal"`

	// Scope lists the roles granted to the token.
	Scope []string `json:"scope,omitempty"`

	// ExpiresAt is when the token stops being valid. Nil means never.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Revoked marks a token withdrawn before its expiry.
	Revoked bool `json:"revoked,omitempty"`
}

// IsExpired reports whether the record has expired at now.
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Store looks up token records.
type Store interface {
	// Lookup returns the record for token, or ErrNotFound.
	Lookup(ctx context.Context, token string) (*Record, error)

	// Name identifies the store in logs and metrics.
	Name() string
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	// Ping reports whether the backing service can answer lookups.
	Ping(ctx context.Context) error
}

// HashToken returns the hex SHA-256 digest stores key records by.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
