// Package layout picks margins and aspect ratio for a container width.
package layout

import (
	"fmt"
	"math"

	"github.com/okian/pacechart/internal/domain/model"
)

// Aspect is one breakpoint table row: containers wider than Breakpoint use
// Ratio (height = width * Ratio).
type Aspect struct {
	Breakpoint float64 `json:"breakpoint"`
	Ratio      float64 `json:"ratio"`
}

// Config holds the responsive layout options.
type Config struct {
	Margin           model.Margin
	MobileMargin     model.Margin
	MobileBreakpoint float64
	// AspectHeight is sorted by Breakpoint, descending, and ends with a
	// zero-breakpoint fallback.
	AspectHeight []Aspect
}

// DefaultConfig returns the stock layout.
func DefaultConfig() Config {
	return Config{
		Margin:           model.Margin{Top: 30, Right: 150, Bottom: 35, Left: 0},
		MobileMargin:     model.Margin{Top: 20, Right: 90, Bottom: 30, Left: 0},
		MobileBreakpoint: 600,
		AspectHeight: []Aspect{
			{Breakpoint: 900, Ratio: 0.5},
			{Breakpoint: 600, Ratio: 0.6},
			{Breakpoint: 0, Ratio: 0.9},
		},
	}
}

// Resolve computes the layout for containerWidth. Plot dimensions are not
// clamped: a negative width or height is left for the caller to reject.
func Resolve(containerWidth float64, cfg Config) (model.LayoutConfig, error) {
	if math.IsNaN(containerWidth) || math.IsInf(containerWidth, 0) {
		return model.LayoutConfig{}, fmt.Errorf("%w: %v", ErrInvalidContainer, containerWidth)
	}

	isMobile := containerWidth <= cfg.MobileBreakpoint
	margin := cfg.Margin
	if isMobile {
		margin = cfg.MobileMargin
	}

	ratio, ok := aspectFor(containerWidth, cfg.AspectHeight)
	if !ok {
		return model.LayoutConfig{}, fmt.Errorf("%w: width %v", ErrNoAspectMatch, containerWidth)
	}

	return model.LayoutConfig{
		ContainerWidth: containerWidth,
		Width:          containerWidth - margin.Left - margin.Right,
		Height:         containerWidth*ratio - margin.Top - margin.Bottom,
		Margin:         margin,
		IsMobile:       isMobile,
		AspectRatio:    ratio,
	}, nil
}

// aspectFor returns the first entry whose breakpoint is strictly below width.
func aspectFor(width float64, table []Aspect) (float64, bool) {
	for _, a := range table {
		if a.Breakpoint < width {
			return a.Ratio, true
		}
	}
	return 0, false
}

// Validate checks that table is non-empty, strictly descending, has
// positive ratios and ends with a zero-breakpoint fallback.
func Validate(table []Aspect) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidAspects)
	}
	for i, a := range table {
		if !(a.Ratio > 0) || math.IsInf(a.Ratio, 0) {
			return fmt.Errorf("%w: entry %d has ratio %v", ErrInvalidAspects, i, a.Ratio)
		}
		if i > 0 && a.Breakpoint >= table[i-1].Breakpoint {
			return fmt.Errorf("%w: entry %d breakpoint %v is not below %v", ErrInvalidAspects, i, a.Breakpoint, table[i-1].Breakpoint)
		}
	}
	if last := table[len(table)-1]; last.Breakpoint != 0 {
		return fmt.Errorf("%w: missing zero-breakpoint fallback", ErrInvalidAspects)
	}
	return nil
}
