package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/vyrodovalexey/authgate/internal/audit"
	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/auth/token"
	"github.com/vyrodovalexey/authgate/internal/authz"
	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/health"
	"github.com/vyrodovalexey/authgate/internal/middleware"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// whoamiPattern is served even when no rule names it.
const whoamiPattern = "GET /whoami"

// application holds all application components.
type application struct {
	config     *config.AuthGateConfig
	logger     observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	authn      *authentication
	auditor    audit.Logger
	authorizer *authz.Authorizer
	health     *health.Handler
	handler    http.Handler
	patterns   map[string]bool
	grpcServer *grpc.Server
}

// newApplication initializes all application components. Nothing listens
// until run is called.
func newApplication(ctx context.Context, cfg *config.AuthGateConfig, logger observability.Logger) (*application, error) {
	namespace := metricsNamespace(cfg)
	metrics := observability.NewMetrics(namespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	auditor, err := audit.NewLogger(audit.ConvertFromConfig(cfg.Spec.Audit),
		audit.WithLoggerLogger(logger.With(observability.String("component", "audit"))),
		audit.WithLoggerMetrics(audit.NewMetricsWithRegisterer(namespace, metrics.Registry())),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	authn, err := buildAuthentication(ctx, cfg.Spec.Authentication, namespace, metrics.Registry(), logger)
	if err != nil {
		_ = auditor.Close()
		return nil, err
	}
	authn.options = append(authn.options, auth.WithAuthenticatorAuditor(auditor))
	authn.closers = append(authn.closers, auditor.Close)

	table, err := authz.ConvertFromConfig(cfg.Spec.Authorization)
	if err != nil {
		_ = authn.close()
		return nil, fmt.Errorf("authorization: %w", err)
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		authn:   authn,
		auditor: auditor,
		health: health.NewHandler(version,
			health.WithLogger(logger.With(observability.String("component", "health"))),
			health.WithMetrics(health.NewMetricsWithRegisterer(namespace, metrics.Registry())),
		),
		authorizer: authz.NewAuthorizer(authz.NewStore(table),
			authz.WithAuthorizerLogger(logger.With(observability.String("component", "authz"))),
			authz.WithAuthorizerMetrics(authz.NewMetricsWithRegisterer(namespace, metrics.Registry())),
			authz.WithAuthorizerAuditor(auditor),
			authz.WithChallenge(authn.config.Challenge()),
		),
	}

	app.health.AddCheck(authn.checks...)

	if err := app.buildHandler(); err != nil {
		_ = authn.close()
		return nil, err
	}

	if cfg.Spec.GRPC != nil && cfg.Spec.GRPC.Enabled {
		grpcAuthenticator, err := auth.NewGRPCAuthenticator(authn.config, authn.options...)
		if err != nil {
			_ = authn.close()
			return nil, fmt.Errorf("grpc authentication: %w", err)
		}
		app.grpcServer, err = newGRPCServer(cfg.Spec.GRPC, grpcAuthenticator, app.authorizer, logger)
		if err != nil {
			_ = authn.close()
			return nil, err
		}
	}

	return app, nil
}

func metricsNamespace(cfg *config.AuthGateConfig) string {
	if obs := cfg.Spec.Observability; obs != nil && obs.Metrics != nil && obs.Metrics.Namespace != "" {
		return obs.Metrics.Namespace
	}
	return config.DefaultNamespace
}

// initTracer initializes the tracer.
func initTracer(ctx context.Context, cfg *config.AuthGateConfig) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "authgate",
		SamplingRate: 1.0,
	}

	if obs := cfg.Spec.Observability; obs != nil && obs.Tracing != nil {
		tracerCfg.Enabled = obs.Tracing.Enabled
		tracerCfg.SamplingRate = obs.Tracing.SamplingRate
		tracerCfg.OTLPEndpoint = obs.Tracing.OTLPEndpoint
		tracerCfg.Insecure = obs.Tracing.Insecure
		if obs.Tracing.ServiceName != "" {
			tracerCfg.ServiceName = obs.Tracing.ServiceName
		}
	}

	return observability.NewTracer(ctx, tracerCfg)
}

// buildHandler registers every configured HTTP route behind the
// authorization filter and wraps the lot in the request chain:
// RequestID, Recovery, access log, tracing, metrics, authentication.
func (a *application) buildHandler() error {
	authenticator, err := auth.NewAuthenticator(a.authn.config, a.authn.options...)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}

	routeChain := func(h http.Handler) http.Handler {
		return middleware.Chain(h,
			observability.RouteMiddleware(a.metrics),
			middleware.CapturePrincipal(),
			a.authorizer.HTTPMiddleware(),
		)
	}

	protected := http.NewServeMux()
	a.patterns = make(map[string]bool)
	for _, pattern := range append(httpPatterns(a.config.Spec.Authorization), whoamiPattern) {
		if a.patterns[pattern] {
			continue
		}
		if err := handle(protected, pattern, routeChain(whoamiHandler())); err != nil {
			return err
		}
		a.patterns[pattern] = true
	}

	root := http.NewServeMux()
	root.Handle("GET /healthz", a.health.LivenessHandler())
	root.Handle("GET /readyz", a.health.ReadinessHandler())
	root.Handle("/", authenticator.HTTPMiddleware()(protected))

	a.handler = middleware.Chain(root,
		middleware.RequestID(),
		middleware.Recovery(a.logger),
		middleware.Logging(a.logger),
		observability.TracingMiddleware(a.tracer),
		observability.MetricsMiddleware(a.metrics),
	)
	return nil
}

// httpPatterns returns the rule patterns that are not gRPC method names.
func httpPatterns(cfg *config.AuthorizationConfig) []string {
	if cfg == nil {
		return nil
	}
	patterns := make([]string, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		if !isGRPCMethod(r.Pattern) {
			patterns = append(patterns, r.Pattern)
		}
	}
	return patterns
}

// isGRPCMethod reports whether pattern looks like "/pkg.Service/Method".
func isGRPCMethod(pattern string) bool {
	if !strings.HasPrefix(pattern, "/") || strings.Count(pattern, "/") != 2 {
		return false
	}
	return strings.Contains(authz.ServiceOf(pattern), ".")
}

// handle registers a pattern, turning ServeMux panics on invalid or
// conflicting patterns into errors.
func handle(mux *http.ServeMux, pattern string, h http.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route %q: %v", pattern, r)
		}
	}()
	mux.Handle(pattern, h)
	return nil
}

// reload applies the rules of a reloaded configuration. Patterns that were
// not registered at startup need a restart to be served.
func (a *application) reload(cfg *config.AuthGateConfig) {
	a.reloadTokens(cfg.Spec.Authentication)

	table, err := authz.ConvertFromConfig(cfg.Spec.Authorization)
	if err != nil {
		a.logger.Error("failed to reload authorization rules", observability.Error(err))
		return
	}
	a.authorizer.Reload(table)

	var pending []string
	for _, p := range httpPatterns(cfg.Spec.Authorization) {
		if !a.patterns[p] {
			pending = append(pending, p)
		}
	}
	if len(pending) > 0 {
		sort.Strings(pending)
		a.logger.Warn("new routes are served after restart",
			observability.Strings("patterns", pending),
		)
	}
}

// reloadTokens applies the static token list of cfg to the memory store.
// Tokens dropped from the list are revoked. A disabled token section
// revokes every static token. Other store changes wait for a restart.
func (a *application) reloadTokens(cfg *config.AuthenticationConfig) {
	var next *config.TokenAuthConfig
	if cfg != nil {
		next = cfg.Token
	}
	memory := next != nil && next.Enabled &&
		(next.Store == "" || next.Store == config.TokenStoreMemory)

	if a.authn.staticTokens == nil {
		if memory {
			a.logger.Warn("token store changes are applied after restart")
		}
		return
	}
	if next != nil && next.Enabled && !memory {
		a.logger.Warn("token store changes are applied after restart",
			observability.String("store", next.Store),
		)
		return
	}

	var tokens []config.StaticToken
	if memory {
		tokens = next.Tokens
	}
	revoked := token.ApplyStaticTokens(a.authn.staticTokens, a.authn.tokens, tokens)
	a.authn.tokens = tokens
	a.logger.Info("static tokens reloaded",
		observability.Int("tokens", len(tokens)),
		observability.Int("revoked", revoked),
	)
}

// run serves until ctx is canceled or a listener fails, then shuts down.
func (a *application) run(ctx context.Context, configPath string) error {
	errCh := make(chan error, 3)

	httpServer := a.newHTTPServer()
	var metricsServer *http.Server
	if obs := a.config.Spec.Observability; obs != nil && obs.Metrics != nil && obs.Metrics.Enabled {
		metricsServer = a.newMetricsServer(obs.Metrics)
	}

	if err := a.startListeners(httpServer, metricsServer, errCh); err != nil {
		a.shutdown(httpServer, metricsServer, nil)
		return err
	}

	watcher := a.startConfigWatcher(ctx, configPath)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case runErr = <-errCh:
		a.logger.Error("listener failed", observability.Error(runErr))
	}

	a.shutdown(httpServer, metricsServer, watcher)
	return runErr
}

func (a *application) startListeners(httpServer, metricsServer *http.Server, errCh chan<- error) error {
	if err := a.serveHTTP(httpServer, a.config.Spec.Server.TLS, errCh); err != nil {
		return err
	}
	if metricsServer != nil {
		if err := a.serveHTTP(metricsServer, nil, errCh); err != nil {
			return err
		}
	}
	if a.grpcServer != nil {
		return a.serveGRPC(errCh)
	}
	return nil
}

func (a *application) newHTTPServer() *http.Server {
	s := a.config.Spec.Server
	return &http.Server{
		Addr:              s.Address,
		Handler:           a.handler,
		ReadTimeout:       s.ReadTimeout.Duration(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.WriteTimeout.Duration(),
		IdleTimeout:       s.IdleTimeout.Duration(),
	}
}

func (a *application) newMetricsServer(cfg *config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, a.metrics.Handler())
	mux.Handle("GET /healthz", a.health.LivenessHandler())
	mux.Handle("GET /readyz", a.health.ReadinessHandler())

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func (a *application) serveHTTP(srv *http.Server, tls *config.TLSConfig, errCh chan<- error) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	a.logger.Info("starting http server",
		observability.String("address", ln.Addr().String()),
		observability.Bool("tls", tls != nil),
	)

	go func() {
		var err error
		if tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return nil
}

func (a *application) serveGRPC(errCh chan<- error) error {
	addr := a.config.Spec.GRPC.Address
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	a.logger.Info("starting grpc server", observability.String("address", ln.Addr().String()))

	go func() {
		if err := a.grpcServer.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	return nil
}

// startConfigWatcher watches the configuration file for rule changes. A
// watcher that cannot start is logged and skipped.
func (a *application) startConfigWatcher(ctx context.Context, configPath string) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, a.reload, config.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		a.logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}
	return watcher
}

// shutdown stops listeners and releases resources within the configured
// shutdown timeout.
func (a *application) shutdown(httpServer, metricsServer *http.Server, watcher *config.Watcher) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Spec.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to stop http server gracefully", observability.Error(err))
	}

	if a.grpcServer != nil {
		stopGRPC(shutdownCtx, a.grpcServer)
	}

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	if err := a.authn.close(); err != nil {
		a.logger.Error("failed to close validators", observability.Error(err))
	}

	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	a.logger.Info("authgate stopped")
}
