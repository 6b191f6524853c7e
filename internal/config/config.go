// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults; Load layers file and env on top.
// - Chart options live under the "chart" key and convert to plot.Options.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"time"

	"github.com/okian/pacechart/internal/domain/layout"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/normalize"
	"github.com/okian/pacechart/internal/domain/plot"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SeriesFile optionally seeds the series store with a JSON RawSeriesMap.
	SeriesFile string `koanf:"series_file"`

	// CountriesFile replaces the embedded country directory with a YAML file.
	CountriesFile string `koanf:"countries_file"`

	// SessionQueueSize bounds the event queue of each WebSocket session.
	SessionQueueSize int `koanf:"session_queue_size"`

	// SessionDrainTimeout bounds how long a closing session may take to
	// finish its queued events, e.g. "5s".
	SessionDrainTimeout time.Duration `koanf:"session_drain_timeout"`

	// DedupeSize sets the size of the update-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeadersLimit caps GET /leaders?limit.
	MaxLeadersLimit int `koanf:"max_leaders_limit"`

	// Chart holds the draw options.
	Chart ChartConfig `koanf:"chart"`
}

// MarginConfig is a margin in pixels.
type MarginConfig struct {
	Top    float64 `koanf:"top"`
	Right  float64 `koanf:"right"`
	Bottom float64 `koanf:"bottom"`
	Left   float64 `koanf:"left"`
}

// AspectConfig is one row of the aspect table.
type AspectConfig struct {
	Breakpoint float64 `koanf:"breakpoint"`
	Ratio      float64 `koanf:"ratio"`
}

// TickConfig asks for roughly X and Y ticks per axis.
type TickConfig struct {
	X int `koanf:"x"`
	Y int `koanf:"y"`
}

// ChartConfig mirrors plot.Options in a loadable shape.
type ChartConfig struct {
	PopulationThreshold float64        `koanf:"population_threshold"`
	PeakThreshold       float64        `koanf:"peak_threshold"`
	Margin              MarginConfig   `koanf:"margin"`
	MobileMargin        MarginConfig   `koanf:"mobile_margin"`
	MobileBreakpoint    float64        `koanf:"mobile_breakpoint"`
	AspectHeight        []AspectConfig `koanf:"aspect_height"`
	HighlightColor      string         `koanf:"highlight_color"`
	MinorTickCounts     TickConfig     `koanf:"minor_tick_counts"`
	Tension             float64        `koanf:"tension"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		SessionQueueSize:    256,
		SessionDrainTimeout: 5 * time.Second,
		DedupeSize:          100_000,
		MaxLeadersLimit:     100,
		Chart:               chartFromOptions(plot.DefaultOptions()),
	}
}

// ChartOptions converts the chart section to draw options.
func (c *Config) ChartOptions() plot.Options {
	ch := c.Chart
	aspects := make([]layout.Aspect, len(ch.AspectHeight))
	for i, a := range ch.AspectHeight {
		aspects[i] = layout.Aspect{Breakpoint: a.Breakpoint, Ratio: a.Ratio}
	}
	return plot.Options{
		Normalize: normalize.Options{
			PopulationThreshold: ch.PopulationThreshold,
			PeakThreshold:       ch.PeakThreshold,
		},
		Layout: layout.Config{
			Margin:           ch.Margin.margin(),
			MobileMargin:     ch.MobileMargin.margin(),
			MobileBreakpoint: ch.MobileBreakpoint,
			AspectHeight:     aspects,
		},
		HighlightColor:  ch.HighlightColor,
		MinorTickCounts: plot.TickCounts{X: ch.MinorTickCounts.X, Y: ch.MinorTickCounts.Y},
		Tension:         ch.Tension,
	}
}

func (m MarginConfig) margin() model.Margin {
	return model.Margin{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left}
}

func marginConfig(m model.Margin) MarginConfig {
	return MarginConfig{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left}
}

func chartFromOptions(o plot.Options) ChartConfig {
	aspects := make([]AspectConfig, len(o.Layout.AspectHeight))
	for i, a := range o.Layout.AspectHeight {
		aspects[i] = AspectConfig{Breakpoint: a.Breakpoint, Ratio: a.Ratio}
	}
	return ChartConfig{
		PopulationThreshold: o.Normalize.PopulationThreshold,
		PeakThreshold:       o.Normalize.PeakThreshold,
		Margin:              marginConfig(o.Layout.Margin),
		MobileMargin:        marginConfig(o.Layout.MobileMargin),
		MobileBreakpoint:    o.Layout.MobileBreakpoint,
		AspectHeight:        aspects,
		HighlightColor:      o.HighlightColor,
		MinorTickCounts:     TickConfig{X: o.MinorTickCounts.X, Y: o.MinorTickCounts.Y},
		Tension:             o.Tension,
	}
}
