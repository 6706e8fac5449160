package auth

import (
	"context"
	"fmt"
)

// Validator turns a resolved scheme and its credentials into a security
// context. It is the only place where credential stores or signatures are
// checked. Implementations must be safe for concurrent use and must not
// mutate caller-visible state when ctx is cancelled mid-call.
//
// A validator that cannot resolve an identity returns an error wrapping
// ErrInvalidCredentials. It never returns (nil, nil).
type Validator interface {
	Validate(ctx context.Context, scheme Scheme, credentials string, secure bool) (SecurityContext, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, scheme Scheme, credentials string, secure bool) (SecurityContext, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, scheme Scheme, credentials string, secure bool) (SecurityContext, error) {
	return f(ctx, scheme, credentials, secure)
}

// LabelValidator validates credentials when the caller only knows the raw
// scheme label. Payloads reach it already base64-decoded.
type LabelValidator interface {
	Validate(ctx context.Context, label, credentials string) (SecurityContext, error)
}

// LabelValidatorFunc adapts a function to the LabelValidator interface.
type LabelValidatorFunc func(ctx context.Context, label, credentials string) (SecurityContext, error)

// Validate calls f.
func (f LabelValidatorFunc) Validate(ctx context.Context, label, credentials string) (SecurityContext, error) {
	return f(ctx, label, credentials)
}

// SchemeMux dispatches validation to one validator per scheme.
type SchemeMux struct {
	validators map[Scheme]Validator
}

// NewSchemeMux creates an empty SchemeMux.
func NewSchemeMux() *SchemeMux {
	return &SchemeMux{validators: make(map[Scheme]Validator)}
}

// Handle registers v for scheme. Registration happens at composition time,
// before the mux serves requests.
func (m *SchemeMux) Handle(scheme Scheme, v Validator) *SchemeMux {
	m.validators[scheme] = v
	return m
}

// Schemes returns the schemes with a registered validator.
func (m *SchemeMux) Schemes() []Scheme {
	out := make([]Scheme, 0, len(m.validators))
	for _, s := range Schemes() {
		if _, ok := m.validators[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Validate dispatches to the validator registered for scheme.
func (m *SchemeMux) Validate(ctx context.Context, scheme Scheme, credentials string, secure bool) (SecurityContext, error) {
	v, ok := m.validators[scheme]
	if !ok {
		return nil, WrapAuthError(ErrUnsupportedScheme, scheme.String())
	}
	return v.Validate(ctx, scheme, credentials, secure)
}

// LabelAdapter lifts a LabelValidator into the Validator shape. When decode
// is set the payload is base64-decoded first. The secure flag travels in
// the context; see TransportSecureFromContext.
func LabelAdapter(lv LabelValidator, decode bool) Validator {
	return ValidatorFunc(func(ctx context.Context, scheme Scheme, credentials string, secure bool) (SecurityContext, error) {
		if decode {
			decoded, err := DecodeCredentials(&Credentials{Scheme: scheme, Value: credentials})
			if err != nil {
				return nil, err
			}
			credentials = decoded.Value
		}
		return lv.Validate(ContextWithTransportSecure(ctx, secure), scheme.Label(), credentials)
	})
}

// requireContext turns a (nil, nil) validator result into a failure.
func requireContext(sc SecurityContext, err error) (SecurityContext, error) {
	if err != nil {
		return nil, err
	}
	if IsNil(sc) {
		return nil, fmt.Errorf("validator returned no security context: %w", ErrInvalidCredentials)
	}
	return sc, nil
}

// Ensure the adapters implement their interfaces.
var (
	_ Validator      = ValidatorFunc(nil)
	_ Validator      = (*SchemeMux)(nil)
	_ LabelValidator = LabelValidatorFunc(nil)
)
