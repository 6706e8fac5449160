// Package audit records authentication and authorization decisions as an
// append-only trail of events.
//
// Events never carry credentials. A subject is described by its principal
// name, scheme and roles, and a resource by the route or gRPC method the
// decision was made for. Events are written as JSON lines or as text to
// stdout, stderr or a file:
//
//	logger, err := audit.NewLogger(audit.ConvertFromConfig(cfg.Spec.Audit),
//		audit.WithLoggerMetrics(audit.NewMetricsWithRegisterer("authgate", registry)),
//	)
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
package audit
