package config

import "time"

// Default values for an authgate deployment.
const (
	DefaultHTTPAddress     = ":8080"
	DefaultGRPCAddress     = ":9090"
	DefaultMetricsAddress  = ":9100"
	DefaultMetricsPath     = "/metrics"
	DefaultNamespace       = "authgate"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second

	// APIVersionPrefix prefixes every accepted apiVersion.
	APIVersionPrefix = "authgate.avapigw.io/"

	// Kind is the only accepted document kind.
	Kind = "AuthGate"
)

// AuthGateConfig is the root configuration document.
type AuthGateConfig struct {
	APIVersion string       `yaml:"apiVersion" json:"apiVersion"`
	Kind       string       `yaml:"kind" json:"kind"`
	Metadata   Metadata     `yaml:"metadata" json:"metadata"`
	Spec       AuthGateSpec `yaml:"spec" json:"spec"`
}

// Metadata identifies the deployment.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// AuthGateSpec is the body of the configuration.
type AuthGateSpec struct {
	Server         ServerConfig          `yaml:"server" json:"server"`
	GRPC           *GRPCConfig           `yaml:"grpc,omitempty" json:"grpc,omitempty"`
	Observability  *ObservabilityConfig  `yaml:"observability,omitempty" json:"observability,omitempty"`
	Authentication *AuthenticationConfig `yaml:"authentication,omitempty" json:"authentication,omitempty"`
	Authorization  *AuthorizationConfig  `yaml:"authorization,omitempty" json:"authorization,omitempty"`
	Audit          *AuditConfig          `yaml:"audit,omitempty" json:"audit,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string     `yaml:"address,omitempty" json:"address,omitempty"`
	ReadTimeout     Duration   `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration   `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration   `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration   `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	TLS             *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// TLSConfig points at a certificate pair on disk.
type TLSConfig struct {
	CertFile string `yaml:"certFile" json:"certFile"`
	KeyFile  string `yaml:"keyFile" json:"keyFile"`
}

// GRPCConfig configures the optional gRPC listener.
type GRPCConfig struct {
	Enabled bool       `yaml:"enabled" json:"enabled"`
	Address string     `yaml:"address,omitempty" json:"address,omitempty"`
	TLS     *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// ObservabilityConfig groups metrics, tracing and logging.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address,omitempty" json:"address,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig represents tracing configuration.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	Insecure     bool    `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// AuthenticationConfig configures the authentication filter and the
// validators behind it.
type AuthenticationConfig struct {
	// Mode is "scheme" (default) or "label".
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Header carrying credentials. Defaults to Authorization.
	Header string `yaml:"header,omitempty" json:"header,omitempty"`

	// DecodeBase64 decodes payloads before validation in scheme mode.
	DecodeBase64 bool `yaml:"decodeBase64,omitempty" json:"decodeBase64,omitempty"`

	// UnsupportedSchemeStatus is 401 (default) or 400.
	UnsupportedSchemeStatus int `yaml:"unsupportedSchemeStatus,omitempty" json:"unsupportedSchemeStatus,omitempty"`

	Realm               string   `yaml:"realm,omitempty" json:"realm,omitempty"`
	Challenges          []string `yaml:"challenges,omitempty" json:"challenges,omitempty"`
	SkipPaths           []string `yaml:"skipPaths,omitempty" json:"skipPaths,omitempty"`
	ValidatorTimeout    Duration `yaml:"validatorTimeout,omitempty" json:"validatorTimeout,omitempty"`
	TrustForwardedProto bool     `yaml:"trustForwardedProto,omitempty" json:"trustForwardedProto,omitempty"`

	Token *TokenAuthConfig `yaml:"token,omitempty" json:"token,omitempty"`
	JWT   *JWTAuthConfig   `yaml:"jwt,omitempty" json:"jwt,omitempty"`
	Basic *BasicAuthConfig `yaml:"basic,omitempty" json:"basic,omitempty"`
}

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
	TokenStoreVault  = "vault"
)

// TokenAuthConfig configures opaque bearer token validation.
type TokenAuthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Store is memory (default), redis or vault.
	Store string `yaml:"store,omitempty" json:"store,omitempty"`

	Tokens         []StaticToken         `yaml:"tokens,omitempty" json:"tokens,omitempty"`
	Redis          *RedisConfig          `yaml:"redis,omitempty" json:"redis,omitempty"`
	Vault          *VaultConfig          `yaml:"vault,omitempty" json:"vault,omitempty"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// StaticToken is a token declared inline for the memory store.
type StaticToken struct {
	Token     string     `yaml:"token" json:"token"`
	Principal string     `yaml:"principal,omitempty" json:"principal,omitempty"`
	Scope     []string   `yaml:"scope,omitempty" json:"scope,omitempty"`
	ExpiresAt *time.Time `yaml:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// RedisConfig configures the Redis token store.
type RedisConfig struct {
	Address   string   `yaml:"address" json:"address"`
	Password  string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB        int      `yaml:"db,omitempty" json:"db,omitempty"`
	KeyPrefix string   `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// VaultConfig configures the Vault KV v2 token store.
type VaultConfig struct {
	Address   string   `yaml:"address" json:"address"`
	Token     string   `yaml:"token,omitempty" json:"token,omitempty"`
	Namespace string   `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Mount     string   `yaml:"mount,omitempty" json:"mount,omitempty"`
	Path      string   `yaml:"path,omitempty" json:"path,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// CircuitBreakerConfig guards a remote token store.
type CircuitBreakerConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Threshold   int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	HalfOpenMax int      `yaml:"halfOpenRequests,omitempty" json:"halfOpenRequests,omitempty"`
}

// JWTAuthConfig configures JWT bearer validation.
type JWTAuthConfig struct {
	Enabled      bool             `yaml:"enabled" json:"enabled"`
	Algorithms   []string         `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`
	Secret       string           `yaml:"secret,omitempty" json:"secret,omitempty"`
	PublicKey    string           `yaml:"publicKey,omitempty" json:"publicKey,omitempty"`
	JWKSUrl      string           `yaml:"jwksUrl,omitempty" json:"jwksUrl,omitempty"`
	JWKSRefresh  Duration         `yaml:"jwksRefresh,omitempty" json:"jwksRefresh,omitempty"`
	Issuer       string           `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Audience     []string         `yaml:"audience,omitempty" json:"audience,omitempty"`
	ClockSkew    Duration         `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
	ClaimMapping *JWTClaimMapping `yaml:"claimMapping,omitempty" json:"claimMapping,omitempty"`
}

// JWTClaimMapping renames the claims read into a security context.
type JWTClaimMapping struct {
	Scope        string `yaml:"scope,omitempty" json:"scope,omitempty"`
	RefreshCount string `yaml:"refreshCount,omitempty" json:"refreshCount,omitempty"`
	RefreshLimit string `yaml:"refreshLimit,omitempty" json:"refreshLimit,omitempty"`
}

// BasicAuthConfig configures Basic credential validation.
type BasicAuthConfig struct {
	Enabled bool        `yaml:"enabled" json:"enabled"`
	Users   []BasicUser `yaml:"users,omitempty" json:"users,omitempty"`
}

// BasicUser is a user with a bcrypt password hash.
type BasicUser struct {
	Username     string   `yaml:"username" json:"username"`
	PasswordHash string   `yaml:"passwordHash" json:"passwordHash"`
	Roles        []string `yaml:"roles,omitempty" json:"roles,omitempty"`
}

// AuthorizationConfig declares access rules per route and per class.
type AuthorizationConfig struct {
	Classes []ClassRuleConfig `yaml:"classes,omitempty" json:"classes,omitempty"`
	Routes  []RouteRuleConfig `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// ClassRuleConfig declares class-scoped rules. A present rolesAllowed list,
// even an empty one, is a declaration.
type ClassRuleConfig struct {
	Name         string   `yaml:"name" json:"name"`
	RolesAllowed []string `yaml:"rolesAllowed,omitempty" json:"rolesAllowed,omitempty"`
	PermitAll    bool     `yaml:"permitAll,omitempty" json:"permitAll,omitempty"`
}

// RouteRuleConfig declares method-scoped rules for one route. Pattern is an
// http.ServeMux pattern such as "GET /orders/{id}" or a gRPC full method.
type RouteRuleConfig struct {
	Pattern      string   `yaml:"pattern" json:"pattern"`
	Class        string   `yaml:"class,omitempty" json:"class,omitempty"`
	DenyAll      bool     `yaml:"denyAll,omitempty" json:"denyAll,omitempty"`
	RolesAllowed []string `yaml:"rolesAllowed,omitempty" json:"rolesAllowed,omitempty"`
	PermitAll    bool     `yaml:"permitAll,omitempty" json:"permitAll,omitempty"`
}

// Audit output formats.
const (
	AuditFormatJSON = "json"
	AuditFormatText = "text"
)

// AuditConfig configures the security audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Output is stdout (default), stderr or a file path.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	// Format is json (default) or text.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Events selects the audited decisions. Nil audits both kinds.
	Events *AuditEventsConfig `yaml:"events,omitempty" json:"events,omitempty"`

	// SkipAllowed drops successful authentications and granted accesses.
	SkipAllowed bool `yaml:"skipAllowed,omitempty" json:"skipAllowed,omitempty"`
}

// AuditEventsConfig toggles event kinds.
type AuditEventsConfig struct {
	Authentication bool `yaml:"authentication" json:"authentication"`
	Authorization  bool `yaml:"authorization" json:"authorization"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *AuthGateConfig {
	return &AuthGateConfig{
		APIVersion: APIVersionPrefix + "v1",
		Kind:       Kind,
		Metadata:   Metadata{Name: "authgate"},
		Spec: AuthGateSpec{
			Server: ServerConfig{
				Address:         DefaultHTTPAddress,
				ReadTimeout:     Duration(DefaultReadTimeout),
				WriteTimeout:    Duration(DefaultWriteTimeout),
				IdleTimeout:     Duration(DefaultIdleTimeout),
				ShutdownTimeout: Duration(DefaultShutdownTimeout),
			},
			Observability: &ObservabilityConfig{
				Metrics: &MetricsConfig{
					Enabled:   true,
					Address:   DefaultMetricsAddress,
					Path:      DefaultMetricsPath,
					Namespace: DefaultNamespace,
				},
				Logging: &LoggingConfig{Level: "info", Format: "json"},
			},
			Authentication: &AuthenticationConfig{},
			Authorization:  &AuthorizationConfig{},
		},
	}
}

// ApplyDefaults fills unset fields with their default values.
func (c *AuthGateConfig) ApplyDefaults() {
	d := DefaultConfig()
	s := &c.Spec

	if s.Server.Address == "" {
		s.Server.Address = d.Spec.Server.Address
	}
	if s.Server.ReadTimeout == 0 {
		s.Server.ReadTimeout = d.Spec.Server.ReadTimeout
	}
	if s.Server.WriteTimeout == 0 {
		s.Server.WriteTimeout = d.Spec.Server.WriteTimeout
	}
	if s.Server.IdleTimeout == 0 {
		s.Server.IdleTimeout = d.Spec.Server.IdleTimeout
	}
	if s.Server.ShutdownTimeout == 0 {
		s.Server.ShutdownTimeout = d.Spec.Server.ShutdownTimeout
	}

	if s.GRPC != nil && s.GRPC.Address == "" {
		s.GRPC.Address = DefaultGRPCAddress
	}

	if s.Observability == nil {
		s.Observability = d.Spec.Observability
	}
	if m := s.Observability.Metrics; m != nil {
		if m.Address == "" {
			m.Address = DefaultMetricsAddress
		}
		if m.Path == "" {
			m.Path = DefaultMetricsPath
		}
		if m.Namespace == "" {
			m.Namespace = DefaultNamespace
		}
	}
	if s.Observability.Logging == nil {
		s.Observability.Logging = d.Spec.Observability.Logging
	}

	if s.Authentication == nil {
		s.Authentication = d.Spec.Authentication
	}
	if s.Authorization == nil {
		s.Authorization = d.Spec.Authorization
	}

	if a := s.Audit; a != nil {
		if a.Output == "" {
			a.Output = "stdout"
		}
		if a.Format == "" {
			a.Format = AuditFormatJSON
		}
	}
}
