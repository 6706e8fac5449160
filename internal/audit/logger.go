package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// Logger is the audit logger interface.
type Logger interface {
	// LogEvent logs an audit event.
	LogEvent(ctx context.Context, event *Event)

	// Close closes the logger.
	Close() error
}

// Config configures an audit logger.
type Config struct {
	Enabled bool

	// Output is stdout (default), stderr or a file path.
	Output string

	// Format is json (default) or text.
	Format string

	Authentication bool
	Authorization  bool

	// SkipAllowed drops success events.
	SkipAllowed bool
}

// DefaultConfig returns a disabled configuration that audits both event
// kinds once enabled.
func DefaultConfig() *Config {
	return &Config{
		Output:         "stdout",
		Format:         formatJSON,
		Authentication: true,
		Authorization:  true,
	}
}

// ConvertFromConfig converts the YAML audit section. A nil section
// yields the disabled default.
func ConvertFromConfig(cfg *config.AuditConfig) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}

	out.Enabled = cfg.Enabled
	out.SkipAllowed = cfg.SkipAllowed
	if cfg.Output != "" {
		out.Output = cfg.Output
	}
	if cfg.Format != "" {
		out.Format = cfg.Format
	}
	if cfg.Events != nil {
		out.Authentication = cfg.Events.Authentication
		out.Authorization = cfg.Events.Authorization
	}
	return out
}

// Metrics contains audit metrics.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
}

// NewMetrics creates new audit metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates new audit metrics registered with the
// provided registerer, ignoring duplicate registration errors.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "events_total",
				Help:      "Total number of audit events",
			},
			[]string{"type", "outcome"},
		),
	}
	_ = registerer.Register(m.eventsTotal)

	m.Init()
	return m
}

// Init pre-populates label combinations so the counters are exported
// before the first event.
func (m *Metrics) Init() {
	for _, t := range []EventType{EventTypeAuthentication, EventTypeAuthorization} {
		for _, o := range []Outcome{OutcomeSuccess, OutcomeFailure, OutcomeDenied, OutcomeError} {
			m.eventsTotal.WithLabelValues(string(t), string(o))
		}
	}
}

// RecordEvent records an audit event metric.
func (m *Metrics) RecordEvent(eventType EventType, outcome Outcome) {
	m.eventsTotal.WithLabelValues(string(eventType), string(outcome)).Inc()
}

// logger implements the Logger interface.
type logger struct {
	config  *Config
	writer  io.Writer
	closer  io.Closer
	mu      sync.Mutex
	logger  observability.Logger
	metrics *Metrics
}

// LoggerOption is a functional option for the logger.
type LoggerOption func(*logger)

// WithLoggerLogger sets the logger that reports write failures.
func WithLoggerLogger(l observability.Logger) LoggerOption {
	return func(lg *logger) {
		lg.logger = l
	}
}

// WithLoggerMetrics sets the metrics.
func WithLoggerMetrics(metrics *Metrics) LoggerOption {
	return func(lg *logger) {
		lg.metrics = metrics
	}
}

// WithLoggerWriter sets the writer, overriding the configured output.
func WithLoggerWriter(writer io.Writer) LoggerOption {
	return func(lg *logger) {
		lg.writer = writer
	}
}

// NewLogger creates an audit logger. A disabled configuration yields a
// no-op logger.
func NewLogger(cfg *Config, opts ...LoggerOption) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !cfg.Enabled {
		return NewNoopLogger(), nil
	}

	switch cfg.Format {
	case "", formatJSON, formatText:
	default:
		return nil, fmt.Errorf("unknown audit format %q", cfg.Format)
	}

	l := &logger{
		config: cfg,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.metrics == nil {
		l.metrics = NewMetrics(config.DefaultNamespace)
	}

	if l.writer == nil {
		writer, closer, err := createWriter(cfg.Output)
		if err != nil {
			return nil, err
		}
		l.writer = writer
		l.closer = closer
	}

	return l, nil
}

// createWriter opens the configured output.
func createWriter(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		//nolint:gosec // G304: path from config is trusted
		file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		return file, file, nil
	}
}

// LogEvent logs an audit event.
func (l *logger) LogEvent(ctx context.Context, event *Event) {
	if event == nil || !l.shouldAudit(event) {
		return
	}

	if event.RequestID == "" {
		event.RequestID = observability.RequestIDFromContext(ctx)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if event.TraceID == "" {
			event.TraceID = sc.TraceID().String()
		}
		if event.SpanID == "" {
			event.SpanID = sc.SpanID().String()
		}
	}

	l.metrics.RecordEvent(event.Type, event.Outcome)
	l.writeEvent(event)
}

// shouldAudit checks if an event should be audited based on configuration.
func (l *logger) shouldAudit(event *Event) bool {
	if l.config.SkipAllowed && event.Outcome == OutcomeSuccess {
		return false
	}
	switch event.Type {
	case EventTypeAuthentication:
		return l.config.Authentication
	case EventTypeAuthorization:
		return l.config.Authorization
	default:
		return true
	}
}

// writeEvent writes the event to the output.
func (l *logger) writeEvent(event *Event) {
	var output []byte
	if l.config.Format == formatText {
		output = []byte(formatTextLine(event))
	} else {
		data, err := json.Marshal(event)
		if err != nil {
			l.logger.Error("failed to marshal audit event", observability.Error(err))
			return
		}
		output = append(data, '\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(output); err != nil {
		l.logger.Error("failed to write audit event", observability.Error(err))
	}
}

// formatTextLine formats an event as a single text line.
func formatTextLine(event *Event) string {
	var sb strings.Builder

	sb.WriteString(event.Timestamp.Format(time.RFC3339))
	sb.WriteString(" ")
	sb.WriteString(string(event.Type))
	sb.WriteString(" ")
	sb.WriteString(string(event.Outcome))

	if event.Transport != "" {
		sb.WriteString(" transport=")
		sb.WriteString(event.Transport)
	}
	if event.Subject != nil {
		if event.Subject.Principal != "" {
			sb.WriteString(" principal=")
			sb.WriteString(event.Subject.Principal)
		}
		if event.Subject.Scheme != "" {
			sb.WriteString(" scheme=")
			sb.WriteString(event.Subject.Scheme)
		}
	}
	if event.Resource != nil {
		sb.WriteString(" target=")
		sb.WriteString(event.Resource.Target)
	}
	if event.Rule != "" {
		sb.WriteString(" rule=")
		sb.WriteString(event.Rule)
	}
	if event.Reason != "" {
		sb.WriteString(" reason=")
		sb.WriteString(event.Reason)
	}
	if event.RequestID != "" {
		sb.WriteString(" request_id=")
		sb.WriteString(event.RequestID)
	}
	if event.TraceID != "" {
		sb.WriteString(" trace_id=")
		sb.WriteString(event.TraceID)
	}

	sb.WriteString("\n")
	return sb.String()
}

// Close closes the output file, if any.
func (l *logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// noopLogger is a no-op audit logger.
type noopLogger struct{}

// NewNoopLogger creates a new no-op audit logger.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) LogEvent(context.Context, *Event) {}

func (noopLogger) Close() error { return nil }

var (
	_ Logger = (*logger)(nil)
	_ Logger = noopLogger{}
)
