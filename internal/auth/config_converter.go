package auth

import (
	"fmt"

	"github.com/vyrodovalexey/authgate/internal/config"
)

// ConvertFromConfig converts the YAML authentication section into a
// filter Config. A nil section yields the defaults.
func ConvertFromConfig(cfg *config.AuthenticationConfig) (*Config, error) {
	if cfg == nil {
		return DefaultConfig(), nil
	}

	out := &Config{
		Mode: Mode(cfg.Mode),
		Extraction: &ExtractionConfig{
			Header:       cfg.Header,
			DecodeBase64: cfg.DecodeBase64,
		},
		UnsupportedSchemeStatus: cfg.UnsupportedSchemeStatus,
		Realm:                   cfg.Realm,
		SkipPaths:               append([]string(nil), cfg.SkipPaths...),
		ValidatorTimeout:        cfg.ValidatorTimeout.Duration(),
		TrustForwardedProto:     cfg.TrustForwardedProto,
	}

	for i, label := range cfg.Challenges {
		s, ok := ParseScheme(label)
		if !ok {
			return nil, fmt.Errorf("challenges[%d]: unsupported scheme %q", i, label)
		}
		out.Challenges = append(out.Challenges, s)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
