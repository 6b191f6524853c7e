package plot

import (
	"github.com/okian/pacechart/internal/domain/layout"
	"github.com/okian/pacechart/internal/domain/normalize"
)

// DefaultHighlightColor is the stroke colour of the emphasized series.
const DefaultHighlightColor = "#74c476"

// TickCounts asks the axes for roughly this many ticks per axis.
type TickCounts struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Options are the chart options of one draw.
type Options struct {
	Normalize       normalize.Options
	Layout          layout.Config
	HighlightColor  string
	MinorTickCounts TickCounts
	// Tension of the cardinal spline, 0 for the smoothest curve.
	Tension float64
}

// DefaultOptions returns the stock chart options.
func DefaultOptions() Options {
	return Options{
		Normalize:       normalize.DefaultOptions(),
		Layout:          layout.DefaultConfig(),
		HighlightColor:  DefaultHighlightColor,
		MinorTickCounts: TickCounts{X: 4, Y: 4},
	}
}
