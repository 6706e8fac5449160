// Package config provides configuration types and loading for authgate.
//
// The configuration is a single YAML document (apiVersion, kind, metadata,
// spec) covering the listeners, observability, the authentication filter
// with its validators, and the access rule table.
//
// # Features
//
//   - YAML loading with ${VAR} and ${VAR:-default} substitution
//   - Validation with path-qualified error reporting
//   - File watching for hot-reload of access rules
//
// # Loading
//
//	cfg, err := config.LoadConfig("authgate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.AuthGateConfig) {
//	    // swap the access rule table
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = watcher.Start(ctx)
package config
