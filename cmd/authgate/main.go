// Package main is the entry point for authgate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, configPath := loadAndValidateConfig(flags.configPath, logger)
	logger = applyLogConfig(cfg, flags, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize authgate", observability.Error(err))
	}

	if err := app.run(ctx, configPath); err != nil {
		logger.Error("authgate stopped with error", observability.Error(err))
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("AUTHGATE_CONFIG_PATH", "configs/authgate.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("AUTHGATE_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := flag.String("log-format", getEnvOrDefault("AUTHGATE_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("authgate version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the bootstrap logger from flags. Settings from the
// configuration file are applied once it is loaded.
func initLogger(flags cliFlags) observability.Logger {
	cfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// applyLogConfig rebuilds the logger from the configuration file. Flags and
// environment variables take precedence.
func applyLogConfig(cfg *config.AuthGateConfig, flags cliFlags, logger observability.Logger) observability.Logger {
	obs := cfg.Spec.Observability
	if obs == nil || obs.Logging == nil {
		return logger
	}

	logCfg := observability.LogConfig{
		Level:  obs.Logging.Level,
		Format: obs.Logging.Format,
		Output: obs.Logging.Output,
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	configured, err := observability.NewLogger(logCfg)
	if err != nil {
		logger.Warn("keeping bootstrap logger", observability.Error(err))
		return logger
	}
	_ = logger.Sync()
	return configured
}

// loadAndValidateConfig loads and validates the configuration. It also
// returns the resolved path for the watcher.
func loadAndValidateConfig(configPath string, logger observability.Logger) (*config.AuthGateConfig, string) {
	logger.Info("starting authgate",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		logger.Fatal("failed to locate configuration", observability.Error(err))
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	routes := 0
	if cfg.Spec.Authorization != nil {
		routes = len(cfg.Spec.Authorization.Routes)
	}
	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Int("routes", routes),
		observability.Bool("grpc", cfg.Spec.GRPC != nil && cfg.Spec.GRPC.Enabled),
	)

	return cfg, path
}
