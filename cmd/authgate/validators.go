package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/auth/basic"
	"github.com/vyrodovalexey/authgate/internal/auth/jwt"
	"github.com/vyrodovalexey/authgate/internal/auth/token"
	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/health"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// authentication is the assembled authentication filter configuration.
type authentication struct {
	config  *auth.Config
	options []auth.AuthenticatorOption
	closers []func() error
	checks  []health.Check

	// staticTokens is set when the token validator uses the memory store.
	staticTokens *token.MemoryStore
	tokens       []config.StaticToken
}

// close releases validator resources such as store connections.
func (a *authentication) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// buildAuthentication assembles the validators enabled in cfg. In scheme
// mode Bearer goes to the JWT or token validator and Basic to the Basic
// validator through a label adapter. In label mode the Basic validator
// receives every credential.
func buildAuthentication(
	ctx context.Context,
	cfg *config.AuthenticationConfig,
	namespace string,
	registry prometheus.Registerer,
	logger observability.Logger,
) (*authentication, error) {
	authCfg, err := auth.ConvertFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("authentication: %w", err)
	}
	if cfg == nil {
		cfg = &config.AuthenticationConfig{}
	}

	a := &authentication{
		config: authCfg,
		options: []auth.AuthenticatorOption{
			auth.WithAuthenticatorLogger(logger.With(observability.String("component", "auth"))),
			auth.WithAuthenticatorMetrics(auth.NewMetricsWithRegisterer(namespace, registry)),
		},
	}

	var basicValidator *basic.Validator
	if cfg.Basic != nil && cfg.Basic.Enabled {
		basicValidator, err = basic.NewFromConfig(cfg.Basic, logger)
		if err != nil {
			return nil, fmt.Errorf("basic: %w", err)
		}
	}

	if authCfg.GetEffectiveMode() == auth.ModeLabel {
		if basicValidator == nil {
			return nil, errors.New("label mode requires the basic validator")
		}
		a.options = append(a.options, auth.WithLabelValidator(basicValidator))
		return a, nil
	}

	mux := auth.NewSchemeMux()
	if basicValidator != nil {
		mux.Handle(auth.SchemeBasic, auth.LabelAdapter(basicValidator, true))
	}

	switch {
	case cfg.JWT != nil && cfg.JWT.Enabled:
		v, err := jwt.NewValidator(ctx, jwt.ConvertFromConfig(cfg.JWT),
			jwt.WithLogger(logger),
			jwt.WithMetrics(jwt.NewMetricsWithRegisterer(namespace, registry)),
		)
		if err != nil {
			return nil, fmt.Errorf("jwt: %w", err)
		}
		a.closers = append(a.closers, v.Close)
		a.checks = append(a.checks, health.NewCheckFunc("jwt-keys", v.Ping))
		mux.Handle(auth.SchemeBearer, v)

	case cfg.Token != nil && cfg.Token.Enabled:
		v, err := token.NewFromConfig(ctx, cfg.Token, logger,
			token.NewMetricsWithRegisterer(namespace, registry))
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		a.closers = append(a.closers, v.Close)
		a.checks = append(a.checks, health.NewCheckFunc("token-store-"+v.StoreName(), v.Ping))
		if mem, ok := v.MemoryStore(); ok {
			a.staticTokens = mem
			a.tokens = cfg.Token.Tokens
		}
		mux.Handle(auth.SchemeBearer, v)
	}

	if len(mux.Schemes()) == 0 {
		_ = a.close()
		return nil, errors.New("no validator is enabled")
	}

	a.options = append(a.options, auth.WithValidator(mux))
	logger.Info("validators configured",
		observability.Int("schemes", len(mux.Schemes())),
	)
	return a, nil
}
