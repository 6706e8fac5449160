package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return &resp
}

func TestHandler_Liveness(t *testing.T) {
	t.Parallel()

	h := NewHandler("1.2.3")
	h.AddCheck(NewCheckFunc("broken", func(context.Context) error {
		return errors.New("down")
	}))

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Checks)
}

func TestHandler_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     []Check
		wantCode   int
		wantStatus string
		wantErrors map[string]string
	}{
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "all healthy",
			checks: []Check{
				NewCheckFunc("a", func(context.Context) error { return nil }),
				NewCheckFunc("b", func(context.Context) error { return nil }),
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "one failing",
			checks: []Check{
				NewCheckFunc("a", func(context.Context) error { return nil }),
				NewCheckFunc("b", func(context.Context) error { return errors.New("connection refused") }),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusError,
			wantErrors: map[string]string{"b": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler("dev")
			h.AddCheck(tt.checks...)

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			for name, result := range resp.Checks {
				if msg, ok := tt.wantErrors[name]; ok {
					assert.Equal(t, StatusError, result.Status)
					assert.Equal(t, msg, result.Error)
				} else {
					assert.Equal(t, StatusOK, result.Status)
					assert.Empty(t, result.Error)
				}
			}
		})
	}
}

func TestHandler_ReadinessTimeout(t *testing.T) {
	t.Parallel()

	h := NewHandler("dev", WithTimeout(20*time.Millisecond))
	h.AddCheck(NewCheckFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	resp := h.Readiness(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StatusError, resp.Status)
	require.Contains(t, resp.Checks, "slow")
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["slow"].Error)
}

func TestHandler_CheckNames(t *testing.T) {
	t.Parallel()

	h := NewHandler("dev")
	h.AddCheck(
		NewCheckFunc("token-store", func(context.Context) error { return nil }),
		NewCheckFunc("jwks", func(context.Context) error { return nil }),
	)

	assert.Equal(t, []string{"jwks", "token-store"}, h.CheckNames())
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", reg)
	h := NewHandler("dev", WithMetrics(m))
	h.AddCheck(NewCheckFunc("store", func(context.Context) error { return errors.New("down") }))

	h.Liveness()
	h.Readiness(context.Background())
	h.Readiness(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.probesTotal.WithLabelValues("liveness")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probesTotal.WithLabelValues("readiness")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.checkStatus.WithLabelValues("store")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.checkStatus.WithLabelValues("overall")))

	// Registering twice must not panic.
	assert.NotPanics(t, func() { NewMetricsWithRegisterer("test", reg) })
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordProbe("liveness")
		m.setCheckStatus("x", true)
	})
}
