package authz

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/authgate/internal/audit"
	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// authzTracer is the OTEL tracer used for authorization operations.
var authzTracer = otel.Tracer("authgate/authz")

// Authorizer applies the active rule table to requests.
type Authorizer struct {
	store     *Store
	logger    observability.Logger
	metrics   *Metrics
	auditor   audit.Logger
	challenge string
}

// AuthorizerOption is a functional option for the authorizer.
type AuthorizerOption func(*Authorizer)

// WithAuthorizerLogger sets the logger for the authorizer.
func WithAuthorizerLogger(logger observability.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// WithAuthorizerMetrics sets the metrics for the authorizer.
func WithAuthorizerMetrics(metrics *Metrics) AuthorizerOption {
	return func(a *Authorizer) {
		a.metrics = metrics
	}
}

// WithAuthorizerAuditor sets the audit logger that records every decision.
func WithAuthorizerAuditor(auditor audit.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		a.auditor = auditor
	}
}

// WithChallenge sets the WWW-Authenticate value sent with HTTP 401
// responses. The default is "Bearer".
func WithChallenge(challenge string) AuthorizerOption {
	return func(a *Authorizer) {
		a.challenge = challenge
	}
}

// NewAuthorizer creates an authorizer reading rules from store.
func NewAuthorizer(store *Store, opts ...AuthorizerOption) *Authorizer {
	if store == nil {
		store = NewStore(nil)
	}

	a := &Authorizer{
		store:     store,
		logger:    observability.NopLogger(),
		auditor:   audit.NewNoopLogger(),
		challenge: auth.SchemeBearer.Label(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = NewMetrics("authgate")
	}
	a.metrics.SetRulesLoaded(store.Load().Len())

	return a
}

// Reload swaps the active rule table.
func (a *Authorizer) Reload(table *Table) {
	a.store.Swap(table)
	a.metrics.SetRulesLoaded(a.store.Load().Len())
	a.logger.Info("authorization rules reloaded",
		observability.Int("routes", a.store.Load().Len()),
	)
}

// Authorize evaluates the rules for route name in class against the
// security context attached to ctx.
func (a *Authorizer) Authorize(ctx context.Context, transport, name, class string) Decision {
	ctx, span := authzTracer.Start(ctx, "authz.authorize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("authz.transport", transport),
			attribute.String("authz.target", name),
		),
	)
	defer span.End()

	start := time.Now()
	sc, _ := auth.SecurityContextFromContext(ctx)
	target := a.store.Load().Resolve(name, class)
	if target != nil && target.Class != "" {
		class = target.Class
	}
	decision := Evaluate(target, sc)
	if decision.Target == "" {
		decision.Target = name
	}
	duration := time.Since(start)
	a.metrics.RecordDecision(transport, decision, duration)
	a.auditor.LogEvent(ctx, audit.AuthorizationEvent(auditOutcome(decision.Outcome), auth.AuditSubject(sc),
		&audit.Resource{Target: decision.Target, Class: class}).
		WithTransport(transport).
		WithRule(decision.Rule.String()).
		WithReason(decision.Reason).
		WithDuration(duration))

	span.SetAttributes(
		attribute.String("authz.outcome", decision.Outcome.String()),
		attribute.String("authz.rule", decision.Rule.String()),
	)
	if !decision.Allowed() {
		span.SetStatus(codes.Error, decision.Outcome.String())
		a.logger.Debug("authorization denied",
			observability.String("transport", transport),
			observability.String("target", name),
			observability.String("outcome", decision.Outcome.String()),
			observability.String("rule", decision.Rule.String()),
			observability.String("reason", decision.Reason),
		)
	}

	return decision
}

func auditOutcome(o Outcome) audit.Outcome {
	switch o {
	case OutcomeAllow:
		return audit.OutcomeSuccess
	case OutcomeUnauthorized:
		return audit.OutcomeFailure
	default:
		return audit.OutcomeDenied
	}
}
