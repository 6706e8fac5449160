package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, "authgate.avapigw.io/v1", cfg.APIVersion)
	assert.Equal(t, Kind, cfg.Kind)
	assert.Equal(t, DefaultHTTPAddress, cfg.Spec.Server.Address)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Spec.Server.ShutdownTimeout.Duration())
	require.NotNil(t, cfg.Spec.Observability.Metrics)
	assert.True(t, cfg.Spec.Observability.Metrics.Enabled)
	assert.Equal(t, DefaultNamespace, cfg.Spec.Observability.Metrics.Namespace)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &AuthGateConfig{
		Spec: AuthGateSpec{
			Server: ServerConfig{Address: ":7000"},
			Observability: &ObservabilityConfig{
				Metrics: &MetricsConfig{Enabled: true, Path: "/prom"},
				Logging: &LoggingConfig{Level: "debug"},
			},
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, ":7000", cfg.Spec.Server.Address)
	assert.Equal(t, "/prom", cfg.Spec.Observability.Metrics.Path)
	assert.Equal(t, DefaultMetricsAddress, cfg.Spec.Observability.Metrics.Address)
	assert.Equal(t, "debug", cfg.Spec.Observability.Logging.Level)
	assert.Nil(t, cfg.Spec.GRPC)
}

func TestApplyDefaults_Audit(t *testing.T) {
	t.Parallel()

	cfg := &AuthGateConfig{Spec: AuthGateSpec{Audit: &AuditConfig{Enabled: true}}}
	cfg.ApplyDefaults()

	assert.Equal(t, "stdout", cfg.Spec.Audit.Output)
	assert.Equal(t, AuditFormatJSON, cfg.Spec.Audit.Format)
	assert.Nil(t, cfg.Spec.Audit.Events)
}
