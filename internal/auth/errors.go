package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication operations.
var (
	// ErrMissingCredentials indicates that the Authorization header is absent or blank.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnsupportedScheme indicates that the scheme label is not a supported scheme.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme")

	// ErrMalformedHeader indicates that the header does not split into a scheme
	// and a payload, or that a payload that must be base64 is not decodable.
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrInvalidCredentials indicates that the credentials do not resolve to an identity.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates that a validator recognized the caller but refuses access.
	ErrForbidden = errors.New("forbidden")

	// ErrMissingClaim indicates that a required security context field is absent.
	ErrMissingClaim = errors.New("missing required claim")

	// ErrNoSecurityContext is returned when no security context is attached.
	ErrNoSecurityContext = errors.New("no security context in context")
)

// AuthError represents an authentication error with additional context.
type AuthError struct {
	Scheme  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Scheme, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Scheme, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewAuthError creates a new AuthError.
func NewAuthError(scheme, message string) *AuthError {
	return &AuthError{
		Scheme:  scheme,
		Message: message,
	}
}

// NewAuthErrorWithCause creates a new AuthError with a cause.
func NewAuthErrorWithCause(scheme, message string, cause error) *AuthError {
	return &AuthError{
		Scheme:  scheme,
		Message: message,
		Cause:   cause,
	}
}

// WrapAuthError wraps an error with the scheme it was raised for.
func WrapAuthError(err error, scheme string) error {
	if err == nil {
		return nil
	}
	return &AuthError{
		Scheme:  scheme,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// MissingFieldError reports a required security context field that was not set.
type MissingFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Unwrap returns ErrMissingClaim.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingClaim
}

// Reason returns a short, credential-free reason string for err, suitable
// for metric labels and response bodies.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingClaim):
		return "invalid_credentials"
	default:
		return "validator_error"
	}
}
