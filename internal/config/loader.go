package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pacechart/internal/domain/layout"
)

const (
	envPrefix  = "PACECHART_"
	envConfig  = "PACECHART_CONFIG"
	envNesting = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PACECHART_CONFIG is set
//  3. env (prefix PACECHART_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PACECHART_CHART__PEAK_THRESHOLD -> chart.peak_threshold
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, envNesting, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// A configured table replaces the default one instead of merging into it.
	if k.Exists("chart.aspect_height") {
		cfg.Chart.AspectHeight = nil
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields Load cannot type-check.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.SessionQueueSize <= 0:
		return fmt.Errorf("%w: session_queue_size must be positive", ErrInvalidConfig)
	case c.SessionDrainTimeout <= 0:
		return fmt.Errorf("%w: session_drain_timeout must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxLeadersLimit <= 0:
		return fmt.Errorf("%w: max_leaders_limit must be positive", ErrInvalidConfig)
	}

	ch := c.Chart
	for name, v := range map[string]float64{
		"population_threshold": ch.PopulationThreshold,
		"peak_threshold":       ch.PeakThreshold,
		"mobile_breakpoint":    ch.MobileBreakpoint,
		"tension":              ch.Tension,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: chart.%s is not a finite number", ErrInvalidConfig, name)
		}
	}
	if ch.Tension < 0 || ch.Tension > 1 {
		return fmt.Errorf("%w: chart.tension %v outside [0,1]", ErrInvalidConfig, ch.Tension)
	}
	if ch.MinorTickCounts.X < 0 || ch.MinorTickCounts.Y < 0 {
		return fmt.Errorf("%w: chart.minor_tick_counts must not be negative", ErrInvalidConfig)
	}
	if ch.HighlightColor == "" {
		return fmt.Errorf("%w: chart.highlight_color must not be empty", ErrInvalidConfig)
	}
	if err := layout.Validate(c.ChartOptions().Layout.AspectHeight); err != nil {
		return fmt.Errorf("%w: chart.aspect_height: %w", ErrInvalidConfig, err)
	}
	return nil
}
