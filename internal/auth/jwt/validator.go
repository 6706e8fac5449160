package jwt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// Validator validates JWT bearer tokens and implements auth.Validator.
type Validator struct {
	config     *Config
	keys       *keySource
	algorithms []string
	httpClient *http.Client
	logger     observability.Logger
	metrics    *Metrics
	now        func() time.Time
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

// WithHTTPClient sets the client used to fetch the JWKS.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Validator) {
		v.httpClient = client
	}
}

// WithClock overrides the time source used for exp and nbf checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator. A JWKS source is fetched before the
// validator is returned.
func NewValidator(ctx context.Context, config *Config, opts ...Option) (*Validator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	v := &Validator{
		config: config,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.metrics == nil {
		v.metrics = NewMetrics("authgate")
	}

	keys, err := newKeySource(ctx, config, v.httpClient, v.logger)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.algorithms = config.GetEffectiveAlgorithms()

	return v, nil
}

// Validate implements auth.Validator.
func (v *Validator) Validate(
	ctx context.Context, scheme auth.Scheme, credentials string, secure bool,
) (auth.SecurityContext, error) {
	start := time.Now()

	sc, err := v.validate(ctx, scheme, credentials, secure)
	if err != nil {
		v.metrics.RecordValidation("failure", time.Since(start))
		v.logger.Debug("jwt validation failed", observability.Error(err))
		return nil, err
	}

	v.metrics.RecordValidation("success", time.Since(start))
	return sc, nil
}

func (v *Validator) validate(
	ctx context.Context, scheme auth.Scheme, credentials string, secure bool,
) (auth.SecurityContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := []byte(credentials)

	msg, err := jws.Parse(data)
	if err != nil || len(msg.Signatures()) == 0 {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, ErrTokenMalformed)
	}
	alg := msg.Signatures()[0].ProtectedHeaders().Algorithm().String()
	if !contains(v.algorithms, alg) {
		return nil, fmt.Errorf("%w: %w: %s", auth.ErrInvalidCredentials, ErrUnsupportedAlgorithm, alg)
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKeySet(v.keys.set, jws.WithInferAlgorithmFromKey(true), jws.WithRequireKid(false)),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.config.ClockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.config.Issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.config.Issuer))
	}

	tok, err := jwt.Parse(data, parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	}

	if !v.audienceMatches(tok.Audience()) {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, ErrTokenInvalidAudience)
	}

	claims, err := v.toClaims(tok, secure, scheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	}

	return auth.NewJWTContext(claims)
}

// audienceMatches reports whether one of aud is accepted.
func (v *Validator) audienceMatches(aud []string) bool {
	if len(v.config.Audience) == 0 {
		return true
	}
	for _, a := range aud {
		if contains(v.config.Audience, a) {
			return true
		}
	}
	return false
}

// Ping reports whether signing keys are available.
func (v *Validator) Ping(_ context.Context) error {
	return v.keys.ready()
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() error {
	v.keys.close()
	return nil
}

var _ auth.Validator = (*Validator)(nil)
