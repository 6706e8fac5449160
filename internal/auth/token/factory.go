package token

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/authgate/internal/config"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// NewFromConfig builds the configured store and a validator over it.
func NewFromConfig(
	ctx context.Context, cfg *config.TokenAuthConfig, logger observability.Logger, metrics *Metrics,
) (*Validator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("token configuration is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics("authgate")
	}

	var store Store
	switch cfg.Store {
	case "", config.TokenStoreMemory:
		mem := NewMemoryStore()
		ApplyStaticTokens(mem, nil, cfg.Tokens)
		store = mem

	case config.TokenStoreRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis configuration is required")
		}
		rs, err := NewRedisStore(ctx, RedisOptions{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Timeout:   cfg.Redis.Timeout.Duration(),
		}, logger)
		if err != nil {
			return nil, err
		}
		store = rs

	case config.TokenStoreVault:
		if cfg.Vault == nil {
			return nil, fmt.Errorf("vault configuration is required")
		}
		vs, err := NewVaultStore(VaultOptions{
			Address:   cfg.Vault.Address,
			Token:     cfg.Vault.Token,
			Namespace: cfg.Vault.Namespace,
			Mount:     cfg.Vault.Mount,
			Path:      cfg.Vault.Path,
			Timeout:   cfg.Vault.Timeout.Duration(),
		}, logger)
		if err != nil {
			return nil, err
		}
		store = vs

	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.Store)
	}

	if cb := cfg.CircuitBreaker; cb != nil && cb.Enabled && store.Name() != "memory" {
		store = NewBreakerStore(store, BreakerSettings{
			Threshold:   cb.Threshold,
			Timeout:     cb.Timeout.Duration(),
			HalfOpenMax: cb.HalfOpenMax,
		}, logger, metrics)
	}

	logger.Info("token validator configured",
		observability.String("store", store.Name()),
	)

	return NewValidator(store, WithLogger(logger), WithMetrics(metrics)), nil
}

// ApplyStaticTokens puts every configured token into s and revokes the
// tokens of previous that tokens no longer lists. It returns the number of
// tokens revoked. A token without a principal is named by its hash prefix.
func ApplyStaticTokens(s *MemoryStore, previous, tokens []config.StaticToken) int {
	listed := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		listed[t.Token] = true
		principal := t.Principal
		if principal == "" {
			principal = HashToken(t.Token)[:12]
		}
		s.Put(t.Token, &Record{
			Principal: principal,
			Scope:     t.Scope,
			ExpiresAt: t.ExpiresAt,
		})
	}

	revoked := 0
	for _, t := range previous {
		if listed[t.Token] {
			continue
		}
		listed[t.Token] = true
		if err := s.Revoke(t.Token); err == nil {
			revoked++
		}
	}
	return revoked
}
