package authz

import "fmt"

// Outcome is the result of an authorization evaluation.
type Outcome int

// Outcomes.
const (
	OutcomeAllow Outcome = iota
	OutcomeUnauthorized
	OutcomeForbidden
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Rule names the precedence step that decided.
type Rule int

// Precedence steps, in evaluation order.
const (
	RuleMethodDenyAll Rule = iota + 1
	RuleMethodRolesAllowed
	RuleMethodPermitAll
	RuleClassRolesAllowed
	RuleClassPermitAll
	RuleAuthenticated
)

// String returns the string representation of the rule.
func (r Rule) String() string {
	switch r {
	case RuleMethodDenyAll:
		return "method_deny_all"
	case RuleMethodRolesAllowed:
		return "method_roles_allowed"
	case RuleMethodPermitAll:
		return "method_permit_all"
	case RuleClassRolesAllowed:
		return "class_roles_allowed"
	case RuleClassPermitAll:
		return "class_permit_all"
	case RuleAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Decision is the result of Evaluate.
type Decision struct {
	Outcome Outcome
	Rule    Rule
	Reason  string

	// Target and Principal identify the request for error reporting.
	// Principal is empty for anonymous callers.
	Target    string
	Principal string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Err returns nil for an allowed request, ErrUnauthenticated for an
// unauthorized one, and an *AccessDeniedError otherwise.
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeAllow:
		return nil
	case OutcomeUnauthorized:
		return ErrUnauthenticated
	default:
		return &AccessDeniedError{
			Target:    d.Target,
			Principal: d.Principal,
			Rule:      d.Rule,
			Reason:    d.Reason,
		}
	}
}

func (d Decision) String() string {
	return fmt.Sprintf("%s by %s: %s", d.Outcome, d.Rule, d.Reason)
}
