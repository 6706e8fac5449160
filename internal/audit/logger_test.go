package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

func newTestLogger(t *testing.T, cfg *Config) (Logger, *bytes.Buffer, *Metrics) {
	t.Helper()

	var buf bytes.Buffer
	metrics := NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	l, err := NewLogger(cfg, WithLoggerWriter(&buf), WithLoggerMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, &buf, metrics
}

func enabledConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	return cfg
}

func decodeEvents(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()

	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e Event
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		events = append(events, e)
	}
	return events
}

func TestConvertFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *config.AuditConfig
		want *Config
	}{
		{
			name: "nil is disabled",
			in:   nil,
			want: DefaultConfig(),
		},
		{
			name: "events selected",
			in: &config.AuditConfig{
				Enabled:     true,
				Output:      "stderr",
				Format:      "text",
				SkipAllowed: true,
				Events:      &config.AuditEventsConfig{Authorization: true},
			},
			want: &Config{
				Enabled:       true,
				Output:        "stderr",
				Format:        "text",
				Authorization: true,
				SkipAllowed:   true,
			},
		},
		{
			name: "nil events audit both",
			in:   &config.AuditConfig{Enabled: true},
			want: &Config{
				Enabled:        true,
				Output:         "stdout",
				Format:         "json",
				Authentication: true,
				Authorization:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ConvertFromConfig(tt.in))
		})
	}
}

func TestNewLogger_Disabled(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(nil)
	require.NoError(t, err)
	assert.IsType(t, noopLogger{}, l)
	assert.NoError(t, l.Close())
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	t.Parallel()

	cfg := enabledConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestLogger_JSON(t *testing.T) {
	t.Parallel()

	l, buf, metrics := newTestLogger(t, enabledConfig())

	ctx := observability.ContextWithRequestID(context.Background(), "req-1")
	l.LogEvent(ctx, AuthenticationEvent(OutcomeSuccess, &Subject{
		Principal: "alice", Scheme: "Bearer", Roles: []string{"reader"},
	}).WithTransport("http"))
	l.LogEvent(ctx, AuthorizationEvent(OutcomeDenied,
		&Subject{Principal: "alice"},
		&Resource{Target: "POST /reports", Class: "reports"},
	).WithRule("method_roles_allowed").WithReason("no allowed role"))

	events := decodeEvents(t, buf)
	require.Len(t, events, 2)

	assert.Equal(t, EventTypeAuthentication, events[0].Type)
	assert.Equal(t, ActionAuthenticate, events[0].Action)
	assert.Equal(t, OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "alice", events[0].Subject.Principal)
	assert.Equal(t, "http", events[0].Transport)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.NotEmpty(t, events[0].ID)

	assert.Equal(t, EventTypeAuthorization, events[1].Type)
	assert.Equal(t, OutcomeDenied, events[1].Outcome)
	assert.Equal(t, "POST /reports", events[1].Resource.Target)
	assert.Equal(t, "method_roles_allowed", events[1].Rule)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventsTotal.WithLabelValues("authentication", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventsTotal.WithLabelValues("authorization", "denied")))
}

func TestLogger_Text(t *testing.T) {
	t.Parallel()

	cfg := enabledConfig()
	cfg.Format = formatText
	l, buf, _ := newTestLogger(t, cfg)

	l.LogEvent(context.Background(), AuthenticationEvent(OutcomeFailure, &Subject{Scheme: "Basic"}).
		WithTransport("grpc").
		WithReason("invalid_credentials"))

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, " authentication failure transport=grpc scheme=Basic reason=invalid_credentials")
	assert.NotContains(t, line, "principal=")
}

func TestLogger_Filtering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		event  *Event
		logged bool
	}{
		{
			name:   "authentication disabled",
			mutate: func(c *Config) { c.Authentication = false },
			event:  AuthenticationEvent(OutcomeFailure, nil),
		},
		{
			name:   "authorization disabled",
			mutate: func(c *Config) { c.Authorization = false },
			event:  AuthorizationEvent(OutcomeDenied, nil, &Resource{Target: "GET /x"}),
		},
		{
			name:   "success skipped",
			mutate: func(c *Config) { c.SkipAllowed = true },
			event:  AuthorizationEvent(OutcomeSuccess, nil, &Resource{Target: "GET /x"}),
		},
		{
			name:   "refusal kept when skipping successes",
			mutate: func(c *Config) { c.SkipAllowed = true },
			event:  AuthorizationEvent(OutcomeFailure, nil, &Resource{Target: "GET /x"}),
			logged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := enabledConfig()
			tt.mutate(cfg)
			l, buf, _ := newTestLogger(t, cfg)

			l.LogEvent(context.Background(), tt.event)
			l.LogEvent(context.Background(), nil)

			assert.Equal(t, tt.logged, buf.Len() > 0)
		})
	}
}

func TestLogger_TraceContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	l, buf, _ := newTestLogger(t, enabledConfig())
	l.LogEvent(ctx, AuthenticationEvent(OutcomeSuccess, nil))

	events := decodeEvents(t, buf)
	require.Len(t, events, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), events[0].TraceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), events[0].SpanID)
}

func TestLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	cfg := enabledConfig()
	cfg.Output = path

	l, err := NewLogger(cfg, WithLoggerMetrics(NewMetricsWithRegisterer("test", prometheus.NewRegistry())))
	require.NoError(t, err)

	l.LogEvent(context.Background(), AuthenticationEvent(OutcomeError, nil).WithReason("validator_error"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reason":"validator_error"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLogger_FileOutputError(t *testing.T) {
	t.Parallel()

	cfg := enabledConfig()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "audit.log")

	_, err := NewLogger(cfg)
	assert.Error(t, err)
}
