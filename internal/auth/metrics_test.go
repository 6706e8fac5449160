package auth

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := NewMetricsWithRegisterer("test", prometheus.NewRegistry())

	m.RecordRequest("http", "bearer", "success", 5*time.Millisecond)
	m.RecordRequest("http", "bearer", "success", time.Millisecond)
	m.RecordSuccess("bearer")
	m.RecordFailure("basic", "invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("http", "bearer", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authSuccessTotal.WithLabelValues("bearer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFailureTotal.WithLabelValues("basic", "invalid_credentials")))
}

func TestMetrics_Init(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", reg)
	m.Init()

	count, err := testutil.GatherAndCount(reg, "test_auth_requests_total")
	require.NoError(t, err)
	assert.Equal(t, len(Schemes())*2*2, count)
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		NewMetricsWithRegisterer("dup", reg)
		NewMetricsWithRegisterer("dup", reg)
	})
}

func TestSchemeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "scram_sha_256", schemeLabel(SchemeScramSHA256))
	assert.Equal(t, "unknown", schemeLabel(SchemeUnknown))
}
