package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

// Event types.
const (
	EventTypeAuthentication EventType = "authentication"
	EventTypeAuthorization  EventType = "authorization"
)

// Action represents the action being audited.
type Action string

// Actions.
const (
	ActionAuthenticate Action = "authenticate"
	ActionAccess       Action = "access"
)

// Outcome represents the outcome of an audited action.
type Outcome string

// Outcomes.
const (
	// OutcomeSuccess is a verified caller or a granted access.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure is a rejected credential, or an access refused for
	// lack of authentication.
	OutcomeFailure Outcome = "failure"

	// OutcomeDenied is an access refused to an authenticated caller.
	OutcomeDenied Outcome = "denied"

	// OutcomeError is a validator that could not reach a verdict.
	OutcomeError Outcome = "error"
)

// Event represents an audit event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`

	// Transport is http or grpc.
	Transport string `json:"transport,omitempty"`

	Subject  *Subject  `json:"subject,omitempty"`
	Resource *Resource `json:"resource,omitempty"`

	// Rule names the authorization rule that decided.
	Rule string `json:"rule,omitempty"`

	// Reason is a short machine-readable cause for a refusal.
	Reason string `json:"reason,omitempty"`

	RequestID string        `json:"request_id,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
	SpanID    string        `json:"span_id,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Subject describes the caller.
type Subject struct {
	// Principal is empty for anonymous callers.
	Principal string   `json:"principal,omitempty"`
	Scheme    string   `json:"scheme,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Resource describes what was accessed.
type Resource struct {
	// Target is the route pattern or gRPC full method.
	Target string `json:"target"`
	Class  string `json:"class,omitempty"`
}

// NewEvent creates a new audit event stamped with an ID and the current time.
func NewEvent(eventType EventType, action Action, outcome Outcome) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Action:    action,
		Outcome:   outcome,
	}
}

// WithSubject sets the subject.
func (e *Event) WithSubject(subject *Subject) *Event {
	e.Subject = subject
	return e
}

// WithResource sets the resource.
func (e *Event) WithResource(resource *Resource) *Event {
	e.Resource = resource
	return e
}

// WithTransport sets the transport.
func (e *Event) WithTransport(transport string) *Event {
	e.Transport = transport
	return e
}

// WithRule sets the deciding rule.
func (e *Event) WithRule(rule string) *Event {
	e.Rule = rule
	return e
}

// WithReason sets the reason.
func (e *Event) WithReason(reason string) *Event {
	e.Reason = reason
	return e
}

// WithDuration sets the duration.
func (e *Event) WithDuration(duration time.Duration) *Event {
	e.Duration = duration
	return e
}

// AuthenticationEvent creates an authentication event.
func AuthenticationEvent(outcome Outcome, subject *Subject) *Event {
	return NewEvent(EventTypeAuthentication, ActionAuthenticate, outcome).WithSubject(subject)
}

// AuthorizationEvent creates an authorization event.
func AuthorizationEvent(outcome Outcome, subject *Subject, resource *Resource) *Event {
	return NewEvent(EventTypeAuthorization, ActionAccess, outcome).
		WithSubject(subject).
		WithResource(resource)
}
