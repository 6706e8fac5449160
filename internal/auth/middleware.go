package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/authgate/internal/audit"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// authTracer is the OTEL tracer used for authentication operations.
var authTracer = otel.Tracer("authgate/auth")

// Authenticator handles authentication for HTTP requests.
type Authenticator interface {
	// Authenticate authenticates an HTTP request.
	Authenticate(r *http.Request) (SecurityContext, error)

	// HTTPMiddleware returns an HTTP middleware for authentication.
	HTTPMiddleware() func(http.Handler) http.Handler
}

// pipeline runs extraction and validation. It holds no per-request state
// and is shared by the HTTP and gRPC front ends.
type pipeline struct {
	config         *Config
	extractor      Extractor
	validator      Validator
	labelValidator LabelValidator
	logger         observability.Logger
	metrics        *Metrics
	auditor        audit.Logger
}

// authenticator implements the Authenticator interface.
type authenticator struct {
	pipeline
}

// AuthenticatorOption is a functional option for the authenticator.
type AuthenticatorOption func(*pipeline)

// WithAuthenticatorLogger sets the logger.
func WithAuthenticatorLogger(logger observability.Logger) AuthenticatorOption {
	return func(p *pipeline) {
		p.logger = logger
	}
}

// WithAuthenticatorMetrics sets the metrics.
func WithAuthenticatorMetrics(metrics *Metrics) AuthenticatorOption {
	return func(p *pipeline) {
		p.metrics = metrics
	}
}

// WithAuthenticatorAuditor sets the audit logger that records every
// authentication attempt.
func WithAuthenticatorAuditor(auditor audit.Logger) AuthenticatorOption {
	return func(p *pipeline) {
		p.auditor = auditor
	}
}

// WithValidator sets the validator used in ModeScheme.
func WithValidator(validator Validator) AuthenticatorOption {
	return func(p *pipeline) {
		p.validator = validator
	}
}

// WithLabelValidator sets the validator used in ModeLabel.
func WithLabelValidator(validator LabelValidator) AuthenticatorOption {
	return func(p *pipeline) {
		p.labelValidator = validator
	}
}

// NewAuthenticator creates a new authenticator. The validator matching the
// configured mode must be supplied as an option.
func NewAuthenticator(config *Config, opts ...AuthenticatorOption) (Authenticator, error) {
	p, err := newPipeline(config, opts)
	if err != nil {
		return nil, err
	}
	return &authenticator{pipeline: *p}, nil
}

func newPipeline(config *Config, opts []AuthenticatorOption) (*pipeline, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &pipeline{
		config:    config,
		extractor: NewExtractor(config.GetEffectiveExtraction()),
		logger:    observability.NopLogger(),
		auditor:   audit.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	switch config.GetEffectiveMode() {
	case ModeLabel:
		if p.labelValidator == nil {
			return nil, errors.New("label validator is required in label mode")
		}
	default:
		if p.validator == nil {
			return nil, errors.New("validator is required in scheme mode")
		}
	}

	// Initialize metrics if not provided
	if p.metrics == nil {
		p.metrics = NewMetrics("authgate")
	}

	return p, nil
}

// Authenticate authenticates an HTTP request.
func (a *authenticator) Authenticate(r *http.Request) (SecurityContext, error) {
	ctx, span := authTracer.Start(r.Context(), "auth.authenticate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("auth.path", r.URL.Path),
			attribute.String("auth.method", r.Method),
		),
	)
	defer span.End()

	sc, err := a.run(ctx, "http", func() (*Credentials, error) {
		return a.extractor.Extract(r)
	}, a.isSecure(r))
	recordSpan(span, sc, err)
	return sc, err
}

// run executes the HEADER_CHECKED -> SCHEME_RESOLVED -> VALIDATED steps.
func (p *pipeline) run(
	ctx context.Context,
	transport string,
	extract func() (*Credentials, error),
	secure bool,
) (SecurityContext, error) {
	start := time.Now()

	creds, err := extract()
	if err != nil {
		p.recordFailure(ctx, transport, SchemeUnknown, err, time.Since(start))
		return nil, err
	}

	ctx = ContextWithTransportSecure(ctx, secure)
	if p.config.ValidatorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ValidatorTimeout)
		defer cancel()
	}

	sc, err := requireContext(p.validate(ctx, creds, secure))
	if err != nil {
		p.recordFailure(ctx, transport, creds.Scheme, err, time.Since(start))
		return nil, WrapAuthError(err, creds.Scheme.String())
	}

	duration := time.Since(start)
	scheme := schemeLabel(creds.Scheme)
	p.metrics.RecordRequest(transport, scheme, "success", duration)
	p.metrics.RecordSuccess(scheme)
	p.auditor.LogEvent(ctx, audit.AuthenticationEvent(audit.OutcomeSuccess, AuditSubject(sc)).
		WithTransport(transport).
		WithDuration(duration))

	return sc, nil
}

func (p *pipeline) validate(ctx context.Context, creds *Credentials, secure bool) (SecurityContext, error) {
	if p.config.GetEffectiveMode() == ModeLabel {
		return p.labelValidator.Validate(ctx, creds.Label, creds.Value)
	}
	return p.validator.Validate(ctx, creds.Scheme, creds.Value, secure)
}

func (p *pipeline) recordFailure(ctx context.Context, transport string, s Scheme, err error, d time.Duration) {
	scheme := schemeLabel(s)
	reason := Reason(err)
	p.metrics.RecordRequest(transport, scheme, "failure", d)
	p.metrics.RecordFailure(scheme, reason)

	outcome := audit.OutcomeFailure
	if reason == "validator_error" {
		outcome = audit.OutcomeError
	}
	var subject *audit.Subject
	if s != SchemeUnknown {
		subject = &audit.Subject{Scheme: s.Label()}
	}
	p.auditor.LogEvent(ctx, audit.AuthenticationEvent(outcome, subject).
		WithTransport(transport).
		WithReason(reason).
		WithDuration(d))

	if reason == "validator_error" {
		p.logger.Error("validator failed",
			observability.String("transport", transport),
			observability.String("scheme", scheme),
			observability.Error(err),
		)
	}
}

// isSecure reports whether the request arrived over TLS.
func (p *pipeline) isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return p.config.TrustForwardedProto &&
		strings.EqualFold(r.Header.Get(HeaderXForwardedProto), "https")
}

// HTTPMiddleware returns an HTTP middleware for authentication.
func (a *authenticator) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.config.ShouldSkipPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sc, err := a.Authenticate(r)
			if err != nil {
				a.handleAuthError(w, r, err)
				return
			}

			ctx := ContextWithSecurityContext(r.Context(), sc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// handleAuthError handles authentication errors.
func (a *authenticator) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, message := a.config.failureStatus(err)

	a.logger.Warn("authentication failed",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.Int("status", statusCode),
		observability.String("reason", Reason(err)),
	)

	if statusCode == http.StatusUnauthorized {
		w.Header().Set(HeaderWWWAuthenticate, a.config.Challenge())
	}
	WriteJSONError(w, statusCode, message)
}

// failureStatus maps an authentication error to an HTTP status and a
// client-safe message. Unrecognized validator errors degrade to 401.
func (c *Config) failureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, ErrUnsupportedScheme):
		return c.GetEffectiveUnsupportedSchemeStatus(), "unsupported authorization scheme"
	case errors.Is(err, ErrMalformedHeader):
		return http.StatusUnauthorized, "malformed authorization header"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingClaim):
		return http.StatusUnauthorized, "invalid credentials"
	default:
		return http.StatusUnauthorized, "authentication failed"
	}
}

// WriteJSONError writes a {"error": message} body with the given status.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func recordSpan(span trace.Span, sc SecurityContext, err error) {
	if err != nil {
		span.SetAttributes(
			attribute.String("auth.result", "failure"),
			attribute.String("auth.reason", Reason(err)),
		)
		span.SetStatus(codes.Error, Reason(err))
		return
	}
	span.SetAttributes(
		attribute.String("auth.result", "success"),
		attribute.String("auth.scheme", sc.AuthenticationScheme().String()),
		attribute.Bool("auth.secure", sc.IsSecure()),
	)
}

// Ensure authenticator implements Authenticator.
var _ Authenticator = (*authenticator)(nil)
