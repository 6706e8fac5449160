package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Mode selects which validator shape a deployment uses.
type Mode string

// Authentication modes.
const (
	// ModeScheme resolves the scheme before validation and propagates the
	// transport-security flag.
	ModeScheme Mode = "scheme"

	// ModeLabel forwards the raw scheme label with a base64-decoded payload.
	ModeLabel Mode = "label"
)

// Config represents the authentication filter configuration.
type Config struct {
	// Mode selects the validator shape. Defaults to ModeScheme.
	Mode Mode `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Extraction configures where credentials are read from.
	Extraction *ExtractionConfig `yaml:"extraction,omitempty" json:"extraction,omitempty"`

	// UnsupportedSchemeStatus is the HTTP status for an unrecognized scheme
	// label: 401 (default) or 400.
	UnsupportedSchemeStatus int `yaml:"unsupportedSchemeStatus,omitempty" json:"unsupportedSchemeStatus,omitempty"`

	// Realm is advertised in WWW-Authenticate challenges.
	Realm string `yaml:"realm,omitempty" json:"realm,omitempty"`

	// Challenges lists the schemes advertised on 401 responses.
	// Defaults to Bearer.
	Challenges []Scheme `yaml:"challenges,omitempty" json:"challenges,omitempty"`

	// SkipPaths lists request paths exempt from authentication. A trailing
	// "*" matches any suffix.
	SkipPaths []string `yaml:"skipPaths,omitempty" json:"skipPaths,omitempty"`

	// ValidatorTimeout bounds each validator call. Zero means the request
	// context alone bounds it.
	ValidatorTimeout time.Duration `yaml:"validatorTimeout,omitempty" json:"validatorTimeout,omitempty"`

	// TrustForwardedProto treats "X-Forwarded-Proto: https" as a secure transport.
	TrustForwardedProto bool `yaml:"trustForwardedProto,omitempty" json:"trustForwardedProto,omitempty"`
}

// ExtractionConfig configures credential extraction.
type ExtractionConfig struct {
	// Header is the header (or gRPC metadata key) carrying credentials.
	// Defaults to Authorization.
	Header string `yaml:"header,omitempty" json:"header,omitempty"`

	// DecodeBase64 base64-decodes the payload before validation.
	DecodeBase64 bool `yaml:"decodeBase64,omitempty" json:"decodeBase64,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Mode:                    ModeScheme,
		UnsupportedSchemeStatus: http.StatusUnauthorized,
		Challenges:              []Scheme{SchemeBearer},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	switch c.Mode {
	case "", ModeScheme, ModeLabel:
	default:
		return fmt.Errorf("mode: unknown mode %q", c.Mode)
	}

	switch c.UnsupportedSchemeStatus {
	case 0, http.StatusUnauthorized, http.StatusBadRequest:
	default:
		return fmt.Errorf("unsupportedSchemeStatus: must be 400 or 401, got %d", c.UnsupportedSchemeStatus)
	}

	for i, s := range c.Challenges {
		if !s.IsValid() {
			return fmt.Errorf("challenges[%d]: invalid scheme", i)
		}
	}

	if c.ValidatorTimeout < 0 {
		return errors.New("validatorTimeout: must not be negative")
	}

	return nil
}

// GetEffectiveMode returns the configured mode or ModeScheme.
func (c *Config) GetEffectiveMode() Mode {
	if c.Mode == "" {
		return ModeScheme
	}
	return c.Mode
}

// GetEffectiveUnsupportedSchemeStatus returns the configured status or 401.
func (c *Config) GetEffectiveUnsupportedSchemeStatus() int {
	if c.UnsupportedSchemeStatus == 0 {
		return http.StatusUnauthorized
	}
	return c.UnsupportedSchemeStatus
}

// GetEffectiveExtraction returns the extraction config for the mode. Label
// mode always decodes the payload.
func (c *Config) GetEffectiveExtraction() *ExtractionConfig {
	ext := ExtractionConfig{}
	if c.Extraction != nil {
		ext = *c.Extraction
	}
	if c.GetEffectiveMode() == ModeLabel {
		ext.DecodeBase64 = true
	}
	return &ext
}

// ShouldSkipPath checks if a path is exempt from authentication.
func (c *Config) ShouldSkipPath(path string) bool {
	for _, skipPath := range c.SkipPaths {
		if matchPath(skipPath, path) {
			return true
		}
	}
	return false
}

// Challenge builds the WWW-Authenticate header value.
func (c *Config) Challenge() string {
	schemes := c.Challenges
	if len(schemes) == 0 {
		schemes = []Scheme{SchemeBearer}
	}

	parts := make([]string, 0, len(schemes))
	for _, s := range schemes {
		if c.Realm != "" {
			parts = append(parts, fmt.Sprintf("%s realm=%q", s.Label(), c.Realm))
			continue
		}
		parts = append(parts, s.Label())
	}
	return strings.Join(parts, ", ")
}

// matchPath matches a path against an exact pattern or a "prefix*" pattern.
func matchPath(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return pattern == path
}
