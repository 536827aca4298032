// Package config defines service configuration and its defaults.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Keys are flat snake_case so env vars map onto them directly.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches the log handler to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SnapshotSource, SeriesSource and ShapesSource are file paths or
	// http(s) URLs. An empty source leaves that dataset pending.
	SnapshotSource string `koanf:"snapshot_source"`
	SeriesSource   string `koanf:"series_source"`
	ShapesSource   string `koanf:"shapes_source"`
	// ShapeNameProperty names the GeoJSON property holding the region name.
	ShapeNameProperty string `koanf:"shape_name_property"`
	// LoadTimeoutMS bounds a single dataset load.
	LoadTimeoutMS int `koanf:"load_timeout_ms"`

	// StorePath is the Badger directory for evaluation responses.
	StorePath string `koanf:"store_path"`
	// StoreInMemory keeps responses in memory only.
	StoreInMemory bool `koanf:"store_in_memory"`

	// FuzzyThreshold is the similarity a fuzzy link must exceed.
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	// CountryAliases enables ISO alias resolution while linking.
	CountryAliases bool `koanf:"country_aliases"`
	// LinkCacheSize bounds the link result cache.
	LinkCacheSize int `koanf:"link_cache_size"`

	// MinYear and MaxYear bound the animation cursor.
	MinYear int `koanf:"min_year"`
	MaxYear int `koanf:"max_year"`
	// StepIntervalMS is the animation tick period.
	StepIntervalMS int `koanf:"step_interval_ms"`

	// HighlightIntervalMS is the blink period of highlighted countries.
	HighlightIntervalMS int `koanf:"highlight_interval_ms"`
	// HighlightTopN is how many leading countries blink on the snapshot map.
	HighlightTopN int `koanf:"highlight_top_n"`

	// DefaultTopN is the subset size of the comparison views.
	DefaultTopN int `koanf:"default_top_n"`
	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// Fixed color domains for the snapshot and year maps.
	SnapshotDomainMin float64 `koanf:"snapshot_domain_min"`
	SnapshotDomainMax float64 `koanf:"snapshot_domain_max"`
	SeriesDomainMin   float64 `koanf:"series_domain_min"`
	SeriesDomainMax   float64 `koanf:"series_domain_max"`

	FallbackColor  string `koanf:"fallback_color"`
	HighlightColor string `koanf:"highlight_color"`

	// ReferenceCountry filters the year map when nothing is selected. It is
	// linked like a shape name; empty disables the filter.
	ReferenceCountry string `koanf:"reference_country"`

	// QueueSize bounds the command queue.
	QueueSize int `koanf:"queue_size"`
}

// New returns the default configuration. Context is accepted first to keep
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		ShapeNameProperty:   "name",
		LoadTimeoutMS:       30_000,
		StorePath:           "data/responses",
		FuzzyThreshold:      0.8,
		CountryAliases:      true,
		LinkCacheSize:       4096,
		MinYear:             2006,
		MaxYear:             2023,
		StepIntervalMS:      300,
		HighlightIntervalMS: 1000,
		HighlightTopN:       10,
		DefaultTopN:         25,
		MaxRankingLimit:     200,
		SnapshotDomainMin:   1.721,
		SnapshotDomainMax:   7.741,
		SeriesDomainMin:     6,
		SeriesDomainMax:     8,
		FallbackColor:       "#cccccc",
		HighlightColor:      "#ffd700",
		QueueSize:           1024,
		ReferenceCountry:    "United States of America",
	}
}

// StepInterval returns the animation period.
func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.StepIntervalMS) * time.Millisecond
}

// HighlightInterval returns the blink period.
func (c *Config) HighlightInterval() time.Duration {
	return time.Duration(c.HighlightIntervalMS) * time.Millisecond
}

// LoadTimeout returns the per-dataset load timeout.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutMS) * time.Millisecond
}
