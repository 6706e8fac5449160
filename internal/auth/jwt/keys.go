package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

// keySource yields the key set signatures are verified against.
type keySource struct {
	set    jwk.Set
	cancel context.CancelFunc
}

// newKeySource builds the key set for the configured source. A JWKS source
// is fetched once up front and then refreshed in the background until
// close is called.
func newKeySource(ctx context.Context, cfg *Config, client *http.Client, logger observability.Logger) (*keySource, error) {
	switch {
	case cfg.Secret != "":
		key, err := jwk.FromRaw([]byte(cfg.Secret))
		if err != nil {
			return nil, fmt.Errorf("invalid secret: %w", err)
		}
		return staticSource(key)

	case cfg.PublicKey != "":
		key, err := jwk.ParseKey([]byte(cfg.PublicKey), jwk.WithPEM(true))
		if err != nil {
			return nil, fmt.Errorf("invalid public key: %w", err)
		}
		return staticSource(key)

	default:
		cacheCtx, cancel := context.WithCancel(context.Background())
		cache := jwk.NewCache(cacheCtx)

		opts := []jwk.RegisterOption{jwk.WithRefreshInterval(cfg.GetEffectiveJWKSRefresh())}
		if client != nil {
			opts = append(opts, jwk.WithHTTPClient(client))
		}
		if err := cache.Register(cfg.JWKSUrl, opts...); err != nil {
			cancel()
			return nil, fmt.Errorf("register jwks: %w", err)
		}
		if _, err := cache.Refresh(ctx, cfg.JWKSUrl); err != nil {
			cancel()
			return nil, fmt.Errorf("fetch jwks: %w", err)
		}

		logger.Info("jwks cache started",
			observability.String("url", cfg.JWKSUrl),
			observability.Duration("refresh", cfg.GetEffectiveJWKSRefresh()),
		)

		return &keySource{
			set:    jwk.NewCachedSet(cache, cfg.JWKSUrl),
			cancel: cancel,
		}, nil
	}
}

func staticSource(key jwk.Key) (*keySource, error) {
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return &keySource{set: set}, nil
}

// ready fails when the key set holds no keys, as a JWKS cache does after a
// fetch that never succeeded.
func (s *keySource) ready() error {
	if s.set.Len() == 0 {
		return errors.New("key set is empty")
	}
	return nil
}

func (s *keySource) close() {
	if s.cancel != nil {
		s.cancel()
	}
}
