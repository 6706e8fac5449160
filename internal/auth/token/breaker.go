package token

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

// Breaker defaults.
const (
	DefaultBreakerThreshold   = 5
	DefaultBreakerTimeout     = 30 * time.Second
	DefaultBreakerHalfOpenMax = 1
)

// ErrStoreUnavailable is returned while the breaker is open.
var ErrStoreUnavailable = errors.New("token store unavailable")

// BreakerSettings configures a BreakerStore.
type BreakerSettings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// HalfOpenMax is the number of probes let through while half-open.
	HalfOpenMax int
}

// BreakerStore guards a remote Store with a circuit breaker. Missing
// records are answers, not failures, and never trip the breaker.
type BreakerStore struct {
	next    Store
	cb      *gobreaker.CircuitBreaker
	logger  observability.Logger
	metrics *Metrics
}

// NewBreakerStore wraps next in a circuit breaker.
func NewBreakerStore(next Store, settings BreakerSettings, logger observability.Logger, metrics *Metrics) *BreakerStore {
	if logger == nil {
		logger = observability.NopLogger()
	}
	threshold := settings.Threshold
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultBreakerTimeout
	}
	halfOpen := settings.HalfOpenMax
	if halfOpen <= 0 {
		halfOpen = DefaultBreakerHalfOpenMax
	}

	s := &BreakerStore{
		next:    next,
		logger:  logger,
		metrics: metrics,
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "token-store-" + next.Name(),
		MaxRequests: safeIntToUint32(halfOpen),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= safeIntToUint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("token store circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if s.metrics != nil {
				s.metrics.RecordBreakerTransition(name, from.String(), to.String())
			}
		},
	})

	return s
}

// Lookup calls the wrapped store unless the breaker is open.
func (s *BreakerStore) Lookup(ctx context.Context, token string) (*Record, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Lookup(ctx, token)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*Record), nil
}

// Name returns the wrapped store's name.
func (s *BreakerStore) Name() string {
	return s.next.Name()
}

// State returns the breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// Ping fails while the breaker is open and otherwise pings the wrapped
// store when it supports it.
func (s *BreakerStore) Ping(ctx context.Context) error {
	if s.cb.State() == gobreaker.StateOpen {
		return ErrStoreUnavailable
	}
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped store if it holds resources.
func (s *BreakerStore) Close() error {
	if c, ok := s.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

var (
	_ Store  = (*BreakerStore)(nil)
	_ Pinger = (*BreakerStore)(nil)
)
