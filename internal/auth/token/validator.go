package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// Validator validates opaque bearer tokens against a Store.
type Validator struct {
	store   Store
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option is a functional option for the validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(v *Validator) {
		v.metrics = metrics
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator over store.
func NewValidator(store Store, opts ...Option) *Validator {
	v := &Validator{
		store:  store,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.metrics == nil {
		v.metrics = NewMetrics("authgate")
	}
	return v
}

// Validate implements auth.Validator. Unknown, revoked and expired tokens
// are invalid credentials; store failures are returned as they are.
func (v *Validator) Validate(
	ctx context.Context, scheme auth.Scheme, credentials string, secure bool,
) (auth.SecurityContext, error) {
	start := time.Now()
	rec, err := v.store.Lookup(ctx, credentials)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			v.metrics.RecordLookup(v.store.Name(), "not_found", time.Since(start))
			return nil, fmt.Errorf("%w: unknown token", auth.ErrInvalidCredentials)
		}
		v.metrics.RecordLookup(v.store.Name(), "error", time.Since(start))
		return nil, fmt.Errorf("token store %s: %w", v.store.Name(), err)
	}
	v.metrics.RecordLookup(v.store.Name(), "found", time.Since(start))

	if rec.Revoked {
		return nil, fmt.Errorf("%w: token revoked", auth.ErrInvalidCredentials)
	}
	if rec.IsExpired(v.now()) {
		return nil, fmt.Errorf("%w: token expired", auth.ErrInvalidCredentials)
	}

	sc, err := auth.NewTokenContext(rec.Principal, rec.Scope, secure, scheme)
	if err != nil {
		v.logger.Warn("token record cannot form a security context",
			observability.String("store", v.store.Name()),
			observability.Error(err),
		)
		return nil, err
	}
	return sc, nil
}

// Ping checks the store. Stores without a remote backend are always ready.
func (v *Validator) Ping(ctx context.Context) error {
	if p, ok := v.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// MemoryStore returns the in-memory store behind the validator, if any.
func (v *Validator) MemoryStore() (*MemoryStore, bool) {
	mem, ok := v.store.(*MemoryStore)
	return mem, ok
}

// StoreName returns the name of the store behind the validator.
func (v *Validator) StoreName() string {
	return v.store.Name()
}

// Close releases the store's resources.
func (v *Validator) Close() error {
	if c, ok := v.store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ auth.Validator = (*Validator)(nil)
