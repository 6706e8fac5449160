package basic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// dummyHash is compared against when the user is unknown so that unknown
// and known usernames take the same time.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := HashPassword("authgate-unknown-user")
	return hash
})

// Validator validates Basic credentials and implements auth.LabelValidator.
type Validator struct {
	store  Store
	logger observability.Logger
}

// Option is a functional option for the validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a validator over store.
func NewValidator(store Store, opts ...Option) *Validator {
	v := &Validator{
		store:  store,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewFromConfig loads the configured users into a MemoryStore.
func NewFromConfig(cfg *config.BasicAuthConfig, logger observability.Logger) (*Validator, error) {
	if cfg == nil {
		return nil, errors.New("basic configuration is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	store := NewMemoryStore()
	for i, u := range cfg.Users {
		if u.Username == "" || strings.Contains(u.Username, ":") {
			return nil, fmt.Errorf("users[%d]: invalid username", i)
		}
		store.Put(&User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Roles:        append([]string(nil), u.Roles...),
		})
	}

	logger.Info("basic validator configured",
		observability.Int("users", len(cfg.Users)),
	)

	return NewValidator(store, WithLogger(logger)), nil
}

// Validate implements auth.LabelValidator. credentials is the decoded
// "user:password" payload.
func (v *Validator) Validate(ctx context.Context, label, credentials string) (auth.SecurityContext, error) {
	if !strings.EqualFold(label, auth.SchemeBasic.Label()) {
		return nil, fmt.Errorf("%w: %s", auth.ErrUnsupportedScheme, label)
	}

	username, password, ok := strings.Cut(credentials, ":")
	if !ok {
		return nil, fmt.Errorf("%w: basic credentials lack a colon", auth.ErrMalformedHeader)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", auth.ErrInvalidCredentials)
	}

	user, err := v.store.Get(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("user store: %w", err)
		}
		ComparePassword(dummyHash(), password)
		return nil, fmt.Errorf("%w: unknown user", auth.ErrInvalidCredentials)
	}

	if !ComparePassword(user.PasswordHash, password) {
		v.logger.Debug("basic password mismatch",
			observability.String("username", username),
		)
		return nil, fmt.Errorf("%w: password mismatch", auth.ErrInvalidCredentials)
	}

	return auth.NewTokenContext(user.Username, user.Roles,
		auth.TransportSecureFromContext(ctx), auth.SchemeBasic)
}

var _ auth.LabelValidator = (*Validator)(nil)
