// Package observability provides logging, metrics and tracing for authgate.
//
// Logging is structured through zap behind the Logger interface:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info("listening", observability.String("address", addr))
//
// Metrics owns a private Prometheus registry. Component metrics in the auth
// and authz packages are registered with Registry(), and Handler() serves
// the lot:
//
//	metrics := observability.NewMetrics("authgate")
//	authMetrics := auth.NewMetricsWithRegisterer("authgate", metrics.Registry())
//
// Tracing installs a global OpenTelemetry provider exporting over OTLP/gRPC.
// TracingMiddleware starts a server span per request and RouteMiddleware,
// applied to handlers registered on the mux, names it after the matched
// pattern.
package observability
