package authz

import (
	"errors"
	"fmt"
)

// Common authorization errors.
var (
	// ErrUnauthenticated indicates that the rule needs an identity and the
	// request carries none.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrAccessDenied indicates that access was denied.
	ErrAccessDenied = errors.New("access denied")
)

// AccessDeniedError reports a Forbidden decision.
type AccessDeniedError struct {
	Target    string
	Principal string
	Rule      Rule
	Reason    string
}

// Error returns the error message.
func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s for %q by %s: %s", e.Target, e.Principal, e.Rule, e.Reason)
}

// Unwrap returns ErrAccessDenied.
func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}
