package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates authgate configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates an authgate configuration.
func ValidateConfig(config *AuthGateConfig) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AuthGateConfig) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(config)
	v.validateSpec(&config.Spec)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateRoot validates root-level fields.
func (v *Validator) validateRoot(config *AuthGateConfig) {
	if config.APIVersion == "" {
		v.addError("apiVersion", "apiVersion is required")
	} else if !strings.HasPrefix(config.APIVersion, APIVersionPrefix) {
		v.addError("apiVersion", fmt.Sprintf("apiVersion must start with '%s'", APIVersionPrefix))
	}

	if config.Kind == "" {
		v.addError("kind", "kind is required")
	} else if config.Kind != Kind {
		v.addError("kind", fmt.Sprintf("kind must be '%s'", Kind))
	}

	if config.Metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
}

// validateSpec validates the spec.
func (v *Validator) validateSpec(spec *AuthGateSpec) {
	v.validateAddress(spec.Server.Address, "spec.server.address")
	v.validateTLS(spec.Server.TLS, "spec.server.tls")

	if spec.GRPC != nil && spec.GRPC.Enabled {
		v.validateAddress(spec.GRPC.Address, "spec.grpc.address")
		v.validateTLS(spec.GRPC.TLS, "spec.grpc.tls")
	}

	if spec.Observability != nil {
		v.validateObservability(spec.Observability, "spec.observability")
	}

	if spec.Authentication != nil {
		v.validateAuthentication(spec.Authentication, "spec.authentication")
	}

	if spec.Authorization != nil {
		v.validateAuthorization(spec.Authorization, "spec.authorization")
	}

	if spec.Audit != nil && spec.Audit.Enabled {
		v.validateAudit(spec.Audit, "spec.audit")
	}
}

// validateAddress validates a host:port listen address.
func (v *Validator) validateAddress(address, path string) {
	if address == "" {
		v.addError(path, "address is required")
		return
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		v.addError(path, fmt.Sprintf("invalid address: %v", err))
	}
}

// validateTLS validates a certificate pair reference.
func (v *Validator) validateTLS(tls *TLSConfig, path string) {
	if tls == nil {
		return
	}
	if tls.CertFile == "" {
		v.addError(path+".certFile", "certFile is required")
	}
	if tls.KeyFile == "" {
		v.addError(path+".keyFile", "keyFile is required")
	}
}

// validateObservability validates observability configuration.
func (v *Validator) validateObservability(obs *ObservabilityConfig, path string) {
	if obs.Metrics != nil && obs.Metrics.Enabled {
		v.validateAddress(obs.Metrics.Address, path+".metrics.address")
		if obs.Metrics.Path != "" && !strings.HasPrefix(obs.Metrics.Path, "/") {
			v.addError(path+".metrics.path", "path must start with '/'")
		}
	}

	if obs.Tracing != nil && obs.Tracing.Enabled {
		if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
			v.addError(path+".tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
	}

	if obs.Logging != nil {
		switch obs.Logging.Level {
		case "", "debug", "info", "warn", "error":
		default:
			v.addError(path+".logging.level", "level must be debug, info, warn, or error")
		}
		switch obs.Logging.Format {
		case "", "json", "console":
		default:
			v.addError(path+".logging.format", "format must be json or console")
		}
	}
}

// validateAuthentication validates authentication configuration.
func (v *Validator) validateAuthentication(authn *AuthenticationConfig, path string) {
	switch authn.Mode {
	case "", "scheme", "label":
	default:
		v.addError(path+".mode", "mode must be scheme or label")
	}

	switch authn.UnsupportedSchemeStatus {
	case 0, 400, 401:
	default:
		v.addError(path+".unsupportedSchemeStatus", "unsupportedSchemeStatus must be 400 or 401")
	}

	if authn.ValidatorTimeout < 0 {
		v.addError(path+".validatorTimeout", "validatorTimeout must not be negative")
	}

	if authn.Token != nil && authn.Token.Enabled {
		v.validateToken(authn.Token, path+".token")
	}

	if authn.JWT != nil && authn.JWT.Enabled {
		v.validateJWT(authn.JWT, path+".jwt")
	}

	if authn.Basic != nil && authn.Basic.Enabled {
		v.validateBasic(authn.Basic, path+".basic")
	}

	if authn.Token != nil && authn.Token.Enabled && authn.JWT != nil && authn.JWT.Enabled {
		v.addError(path, "token and jwt both claim the Bearer scheme; enable only one")
	}
}

// validateToken validates opaque token configuration.
func (v *Validator) validateToken(token *TokenAuthConfig, path string) {
	switch token.Store {
	case "", TokenStoreMemory:
		for i, t := range token.Tokens {
			if t.Token == "" {
				v.addError(fmt.Sprintf("%s.tokens[%d].token", path, i), "token is required")
			}
		}
	case TokenStoreRedis:
		if token.Redis == nil || token.Redis.Address == "" {
			v.addError(path+".redis.address", "address is required for the redis store")
		}
	case TokenStoreVault:
		if token.Vault == nil || token.Vault.Address == "" {
			v.addError(path+".vault.address", "address is required for the vault store")
		}
	default:
		v.addError(path+".store", "store must be memory, redis, or vault")
	}

	if cb := token.CircuitBreaker; cb != nil && cb.Enabled && cb.Threshold < 0 {
		v.addError(path+".circuitBreaker.threshold", "threshold must not be negative")
	}
}

// validateJWT validates JWT configuration.
func (v *Validator) validateJWT(jwt *JWTAuthConfig, path string) {
	sources := 0
	for _, s := range []string{jwt.Secret, jwt.PublicKey, jwt.JWKSUrl} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		v.addError(path, "exactly one of secret, publicKey, or jwksUrl is required")
	}

	if jwt.ClockSkew < 0 {
		v.addError(path+".clockSkew", "clockSkew must not be negative")
	}
}

// validateBasic validates Basic configuration.
func (v *Validator) validateBasic(basic *BasicAuthConfig, path string) {
	names := make(map[string]bool)
	for i, u := range basic.Users {
		userPath := fmt.Sprintf("%s.users[%d]", path, i)
		switch {
		case u.Username == "":
			v.addError(userPath+".username", "username is required")
		case strings.Contains(u.Username, ":"):
			v.addError(userPath+".username", "username must not contain ':'")
		case names[u.Username]:
			v.addError(userPath+".username", fmt.Sprintf("duplicate username: %s", u.Username))
		default:
			names[u.Username] = true
		}
		if u.PasswordHash == "" {
			v.addError(userPath+".passwordHash", "passwordHash is required")
		}
	}
}

// validateAuthorization validates access rule declarations.
func (v *Validator) validateAuthorization(authz *AuthorizationConfig, path string) {
	classes := make(map[string]bool)
	for i, c := range authz.Classes {
		classPath := fmt.Sprintf("%s.classes[%d]", path, i)
		switch {
		case c.Name == "":
			v.addError(classPath+".name", "class name is required")
		case classes[c.Name]:
			v.addError(classPath+".name", fmt.Sprintf("duplicate class name: %s", c.Name))
		default:
			classes[c.Name] = true
		}
	}

	patterns := make(map[string]bool)
	for i, r := range authz.Routes {
		routePath := fmt.Sprintf("%s.routes[%d]", path, i)
		switch {
		case strings.TrimSpace(r.Pattern) == "":
			v.addError(routePath+".pattern", "pattern is required")
		case patterns[r.Pattern]:
			v.addError(routePath+".pattern", fmt.Sprintf("duplicate pattern: %s", r.Pattern))
		default:
			patterns[r.Pattern] = true
		}
		if r.Class != "" && !classes[r.Class] {
			v.addError(routePath+".class", fmt.Sprintf("unknown class: %s", r.Class))
		}
	}
}

// validateAudit validates audit configuration.
func (v *Validator) validateAudit(audit *AuditConfig, path string) {
	switch audit.Format {
	case "", AuditFormatJSON, AuditFormatText:
	default:
		v.addError(path+".format", "format must be json or text")
	}
	if audit.Events != nil && !audit.Events.Authentication && !audit.Events.Authorization {
		v.addError(path+".events", "at least one event kind must be enabled")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
