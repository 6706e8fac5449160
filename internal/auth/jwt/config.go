package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/vyrodovalexey/authgate/internal/config"
)

// Default claim names and refresh interval.
const (
	DefaultScopeClaim        = "scope"
	DefaultRefreshCountClaim = "refresh_count"
	DefaultRefreshLimitClaim = "refresh_limit"
	DefaultJWKSRefresh       = 15 * time.Minute
)

// Config represents JWT validation configuration.
type Config struct {
	// Algorithms is the allow-list of signing algorithms. Empty allows
	// every algorithm that fits the key source.
	Algorithms []string

	// Secret is an HMAC shared secret.
	Secret string

	// PublicKey is a PEM encoded public key.
	PublicKey string

	// JWKSUrl is the URL of a JSON Web Key Set.
	JWKSUrl string

	// JWKSRefresh is the JWKS refresh interval.
	JWKSRefresh time.Duration

	// Issuer is the expected "iss" claim. Empty skips the check.
	Issuer string

	// Audience lists accepted "aud" values; one match is enough.
	Audience []string

	// ClockSkew is the tolerance applied to exp and nbf.
	ClockSkew time.Duration

	// Claim names read into the security context.
	ScopeClaim        string
	RefreshCountClaim string
	RefreshLimitClaim string
}

// ConvertFromConfig converts the YAML jwt section.
func ConvertFromConfig(cfg *config.JWTAuthConfig) *Config {
	if cfg == nil {
		return nil
	}

	out := &Config{
		Algorithms:  append([]string(nil), cfg.Algorithms...),
		Secret:      cfg.Secret,
		PublicKey:   cfg.PublicKey,
		JWKSUrl:     cfg.JWKSUrl,
		JWKSRefresh: cfg.JWKSRefresh.Duration(),
		Issuer:      cfg.Issuer,
		Audience:    append([]string(nil), cfg.Audience...),
		ClockSkew:   cfg.ClockSkew.Duration(),
	}
	if m := cfg.ClaimMapping; m != nil {
		out.ScopeClaim = m.Scope
		out.RefreshCountClaim = m.RefreshCount
		out.RefreshLimitClaim = m.RefreshLimit
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	sources := 0
	for _, s := range []string{c.Secret, c.PublicKey, c.JWKSUrl} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of secret, publicKey, or jwksUrl is required")
	}

	allowed := c.defaultAlgorithms()
	for _, alg := range c.Algorithms {
		if !contains(allowed, alg) {
			return fmt.Errorf("algorithm %s does not fit the configured key source", alg)
		}
	}

	if c.ClockSkew < 0 {
		return errors.New("clockSkew must not be negative")
	}
	return nil
}

// GetEffectiveAlgorithms returns the allow-list in force.
func (c *Config) GetEffectiveAlgorithms() []string {
	if len(c.Algorithms) > 0 {
		return c.Algorithms
	}
	return c.defaultAlgorithms()
}

// GetEffectiveJWKSRefresh returns the JWKS refresh interval.
func (c *Config) GetEffectiveJWKSRefresh() time.Duration {
	if c.JWKSRefresh > 0 {
		return c.JWKSRefresh
	}
	return DefaultJWKSRefresh
}

func (c *Config) scopeClaim() string {
	if c.ScopeClaim != "" {
		return c.ScopeClaim
	}
	return DefaultScopeClaim
}

func (c *Config) refreshCountClaim() string {
	if c.RefreshCountClaim != "" {
		return c.RefreshCountClaim
	}
	return DefaultRefreshCountClaim
}

func (c *Config) refreshLimitClaim() string {
	if c.RefreshLimitClaim != "" {
		return c.RefreshLimitClaim
	}
	return DefaultRefreshLimitClaim
}

func (c *Config) defaultAlgorithms() []string {
	if c.Secret != "" {
		return hmacAlgorithms
	}
	return asymAlgorithms
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
