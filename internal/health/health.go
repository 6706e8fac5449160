// Package health serves liveness and readiness probes. Readiness runs the
// registered checks concurrently and fails while any of them fails.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

// DefaultReadinessTimeout bounds a single readiness probe.
const DefaultReadinessTimeout = 5 * time.Second

// Status values reported by the probes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Check is a named readiness check.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to a Check.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a Check named name.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the check name.
func (f *CheckFunc) Name() string {
	return f.name
}

// Check runs the function.
func (f *CheckFunc) Check(ctx context.Context) error {
	return f.fn(ctx)
}

// Response is the probe body.
type Response struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Handler serves the probes.
type Handler struct {
	version string
	timeout time.Duration
	logger  observability.Logger
	metrics *Metrics

	mu     sync.RWMutex
	checks []Check
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithTimeout bounds every readiness probe.
func WithTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// NewHandler creates a handler reporting version.
func NewHandler(version string, opts ...Option) *Handler {
	h := &Handler{
		version: version,
		timeout: DefaultReadinessTimeout,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddCheck registers a readiness check.
func (h *Handler) AddCheck(checks ...Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, checks...)
}

// CheckNames returns the registered check names, sorted.
func (h *Handler) CheckNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is serving.
func (h *Handler) Liveness() *Response {
	h.metrics.recordProbe("liveness")
	return &Response{
		Status:    StatusOK,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	}
}

// Readiness runs every check and reports StatusError if any failed.
func (h *Handler) Readiness(ctx context.Context) *Response {
	h.metrics.recordProbe("readiness")

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]Check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	resp := &Response{
		Status:    StatusOK,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult, len(checks)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{Status: StatusOK, Duration: duration.String()}
			if err != nil {
				result.Status = StatusError
				result.Error = err.Error()
				h.logger.Warn("readiness check failed",
					observability.String("check", c.Name()),
					observability.Duration("duration", duration),
					observability.Error(err),
				)
			}
			h.metrics.setCheckStatus(c.Name(), err == nil)

			mu.Lock()
			resp.Checks[c.Name()] = result
			if err != nil {
				resp.Status = StatusError
			}
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	h.metrics.setCheckStatus("overall", resp.Status == StatusOK)
	return resp
}

// LivenessHandler answers liveness probes.
func (h *Handler) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.write(w, http.StatusOK, h.Liveness())
	})
}

// ReadinessHandler answers readiness probes with 503 while a check fails.
func (h *Handler) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.Readiness(r.Context())
		status := http.StatusOK
		if resp.Status != StatusOK {
			status = http.StatusServiceUnavailable
		}
		h.write(w, status, resp)
	})
}

func (h *Handler) write(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write probe response", observability.Error(err))
	}
}
