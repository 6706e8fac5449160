package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *AuthGateConfig {
	t.Helper()
	cfg, err := LoadConfigFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)
	return cfg
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "kind: kind is required", ValidationErrors{{Path: "kind", Message: "kind is required"}}.Error())

	multi := ValidationErrors{
		{Path: "a", Message: "first"},
		{Message: "second"},
	}
	assert.Equal(t, "2 validation errors:\n  1. a: first\n  2. second\n", multi.Error())
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(validConfig(t)))
	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*AuthGateConfig)
		errPath string
	}{
		{
			name:    "wrong apiVersion",
			mutate:  func(c *AuthGateConfig) { c.APIVersion = "gateway.avapigw.io/v1" },
			errPath: "apiVersion",
		},
		{
			name:    "wrong kind",
			mutate:  func(c *AuthGateConfig) { c.Kind = "Gateway" },
			errPath: "kind",
		},
		{
			name:    "missing name",
			mutate:  func(c *AuthGateConfig) { c.Metadata.Name = "" },
			errPath: "metadata.name",
		},
		{
			name:    "bad server address",
			mutate:  func(c *AuthGateConfig) { c.Spec.Server.Address = "8080" },
			errPath: "spec.server.address",
		},
		{
			name: "tls without key",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Server.TLS = &TLSConfig{CertFile: "cert.pem"}
			},
			errPath: "spec.server.tls.keyFile",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *AuthGateConfig) { c.Spec.Authentication.Mode = "magic" },
			errPath: "spec.authentication.mode",
		},
		{
			name:    "unsupported scheme status",
			mutate:  func(c *AuthGateConfig) { c.Spec.Authentication.UnsupportedSchemeStatus = 403 },
			errPath: "spec.authentication.unsupportedSchemeStatus",
		},
		{
			name: "redis store without address",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authentication.Token.Store = TokenStoreRedis
			},
			errPath: "spec.authentication.token.redis.address",
		},
		{
			name: "unknown store",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authentication.Token.Store = "etcd"
			},
			errPath: "spec.authentication.token.store",
		},
		{
			name: "token and jwt both enabled",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authentication.JWT = &JWTAuthConfig{Enabled: true, Secret: "s"}
			},
			errPath: "spec.authentication",
		},
		{
			name: "jwt without key source",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authentication.Token = nil
				c.Spec.Authentication.JWT = &JWTAuthConfig{Enabled: true}
			},
			errPath: "spec.authentication.jwt",
		},
		{
			name: "basic username with colon",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authentication.Basic = &BasicAuthConfig{
					Enabled: true,
					Users:   []BasicUser{{Username: "a:b", PasswordHash: "x"}},
				}
			},
			errPath: "spec.authentication.basic.users[0].username",
		},
		{
			name: "duplicate route pattern",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authorization.Routes = append(c.Spec.Authorization.Routes,
					RouteRuleConfig{Pattern: "GET /public"})
			},
			errPath: "spec.authorization.routes[3].pattern",
		},
		{
			name: "unknown audit format",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Audit = &AuditConfig{Enabled: true, Format: "xml"}
			},
			errPath: "spec.audit.format",
		},
		{
			name: "audit with no event kinds",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Audit = &AuditConfig{Enabled: true, Events: &AuditEventsConfig{}}
			},
			errPath: "spec.audit.events",
		},
		{
			name: "unknown class",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Authorization.Routes[0].Class = "billing"
			},
			errPath: "spec.authorization.routes[0].class",
		},
		{
			name: "sampling rate out of range",
			mutate: func(c *AuthGateConfig) {
				c.Spec.Observability.Tracing = &TracingConfig{Enabled: true, SamplingRate: 2}
			},
			errPath: "spec.observability.tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig(t)
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)

			paths := make([]string, 0, len(verrs))
			for _, e := range verrs {
				paths = append(paths, e.Path)
			}
			assert.Contains(t, paths, tt.errPath)
		})
	}
}
