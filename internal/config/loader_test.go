package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "authgate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o600))

	cfg, err := NewLoader().Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "test-gate", cfg.Metadata.Name)
	assert.Equal(t, ":8080", cfg.Spec.Server.Address)
	require.NotNil(t, cfg.Spec.Authentication.Token)
	require.Len(t, cfg.Spec.Authentication.Token.Tokens, 1)
	assert.Equal(t, []string{"reader"}, cfg.Spec.Authentication.Token.Tokens[0].Scope)
	require.Len(t, cfg.Spec.Authorization.Routes, 3)
	assert.True(t, cfg.Spec.Authorization.Routes[1].DenyAll)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoader_LoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("spec: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
apiVersion: authgate.avapigw.io/v1
kind: AuthGate
metadata:
  name: minimal
spec:
  grpc:
    enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddress, cfg.Spec.Server.Address)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Spec.Server.ShutdownTimeout.Duration())
	assert.Equal(t, DefaultGRPCAddress, cfg.Spec.GRPC.Address)
	require.NotNil(t, cfg.Spec.Observability.Metrics)
	assert.Equal(t, DefaultMetricsPath, cfg.Spec.Observability.Metrics.Path)
	assert.NotNil(t, cfg.Spec.Authentication)
	assert.NotNil(t, cfg.Spec.Authorization)
}

func TestLoader_RolesAllowedPresence(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
apiVersion: authgate.avapigw.io/v1
kind: AuthGate
metadata:
  name: roles
spec:
  authorization:
    routes:
      - pattern: "GET /a"
        rolesAllowed: []
      - pattern: "GET /b"
`))
	require.NoError(t, err)

	routes := cfg.Spec.Authorization.Routes
	require.Len(t, routes, 2)
	assert.NotNil(t, routes[0].RolesAllowed, "an empty list is still a declaration")
	assert.Empty(t, routes[0].RolesAllowed)
	assert.Nil(t, routes[1].RolesAllowed)
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		env      map[string]string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "address: ${ADDR}",
			env:      map[string]string{"ADDR": ":8080"},
			expected: "address: :8080",
		},
		{
			name:     "with default value",
			input:    "address: ${ADDR:-:9090}",
			expected: "address: :9090",
		},
		{
			name:     "env var overrides default",
			input:    "address: ${ADDR:-:9090}",
			env:      map[string]string{"ADDR": ":8080"},
			expected: "address: :8080",
		},
		{
			name:     "multiple substitutions",
			input:    "redis: ${HOST}:${PORT}",
			env:      map[string]string{"HOST": "localhost", "PORT": "6379"},
			expected: "redis: localhost:6379",
		},
		{
			name:     "escaped dollar sign",
			input:    "secret: $$ecret",
			expected: "secret: $ecret",
		},
		{
			name:     "missing env var without default",
			input:    "token: ${MISSING_VAR}",
			expected: "token: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			loader := &Loader{lookupEnv: func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}}
			assert.Equal(t, tt.expected, loader.substituteEnvVars(tt.input))
		})
	}
}

func TestLoader_EnvInDurations(t *testing.T) {
	t.Parallel()

	loader := &Loader{lookupEnv: func(k string) (string, bool) {
		if k == "TIMEOUT" {
			return "250ms", true
		}
		return "", false
	}}

	cfg, err := loader.parseConfig([]byte(`
apiVersion: authgate.avapigw.io/v1
kind: AuthGate
metadata:
  name: env
spec:
  authentication:
    validatorTimeout: ${TIMEOUT}
`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Spec.Authentication.ValidatorTimeout.Duration())
}

func TestResolveConfigPath(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "authgate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o600))

	resolved, err := ResolveConfigPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, resolved)

	_, err = ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoader_Load_ShippedConfig(t *testing.T) {
	t.Parallel()

	loader := &Loader{lookupEnv: func(string) (string, bool) { return "", false }}
	cfg, err := loader.Load(filepath.Join("..", "..", "configs", "authgate.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.False(t, cfg.Spec.Observability.Tracing.Enabled)
	require.NotNil(t, cfg.Spec.Authentication.Token)
	assert.Equal(t, "dev-reader-token", cfg.Spec.Authentication.Token.Tokens[0].Token)
	assert.Equal(t, 30*time.Second, cfg.Spec.Authentication.Token.CircuitBreaker.Timeout.Duration())
	require.NotNil(t, cfg.Spec.Audit)
	assert.True(t, cfg.Spec.Audit.SkipAllowed)
}
