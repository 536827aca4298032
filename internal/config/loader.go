package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LADDER_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if LADDER_CONFIG is set
//  3. env (prefix LADDER_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LADDER_FUZZY_THRESHOLD -> fuzzy_threshold (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate rejects settings that cannot produce a working engine.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinYear > c.MaxYear:
		return fmt.Errorf("%w: min_year %d > max_year %d", ErrInvalidConfig, c.MinYear, c.MaxYear)
	case c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1:
		return fmt.Errorf("%w: fuzzy_threshold %v outside [0,1]", ErrInvalidConfig, c.FuzzyThreshold)
	case c.StepIntervalMS <= 0:
		return fmt.Errorf("%w: step_interval_ms must be positive", ErrInvalidConfig)
	case c.HighlightIntervalMS <= 0:
		return fmt.Errorf("%w: highlight_interval_ms must be positive", ErrInvalidConfig)
	case c.SnapshotDomainMin > c.SnapshotDomainMax:
		return fmt.Errorf("%w: snapshot domain is inverted", ErrInvalidConfig)
	case c.SeriesDomainMin > c.SeriesDomainMax:
		return fmt.Errorf("%w: series domain is inverted", ErrInvalidConfig)
	case !hexColor.MatchString(c.FallbackColor) || !hexColor.MatchString(c.HighlightColor):
		return fmt.Errorf("%w: colors must be #rrggbb", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DefaultTopN <= 0 || c.MaxRankingLimit <= 0:
		return fmt.Errorf("%w: ranking limits must be positive", ErrInvalidConfig)
	}
	return nil
}
