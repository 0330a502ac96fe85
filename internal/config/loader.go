package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CONSTELLATION_CONFIG is set
//  3. env (prefix CONSTELLATION_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CONSTELLATION_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CONSTELLATION_ADDR, CONSTELLATION_HOURS, ...
	// Map env keys like CONSTELLATION_FETCH_TIMEOUT_MS -> fetch_timeout_ms
	// (flat keys). Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CONSTELLATION_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "constellation_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("upstream_base_url must not be empty")
	}
	// Out-of-range hour counts are clamped rather than rejected; the feed
	// only ever publishes 24 hourly files.
	if cfg.Hours < 1 {
		cfg.Hours = 1
	} else if cfg.Hours > 24 {
		cfg.Hours = 24
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &cfg, nil
}
