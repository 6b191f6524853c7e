// Package highlight decides which series is emphasized and where its label
// goes. Both entry points are pure: they take the current plot and state and
// return the next state plus the commands that bring a rendered chart from
// the old state to the new one.
//
// The state machine has two phases. Default is entered after every draw and
// highlights the series nearest the plot's top-right corner. Active is
// entered on the first pointer move or drag over the plot. Leaving the plot
// changes nothing: the last highlight stays visible.
package highlight

import (
	"math"

	"github.com/dustin/go-humanize"

	"github.com/okian/pacechart/internal/domain/plot"
)

// Stroke widths of plain and emphasized lines.
const (
	PlainStrokeWidth    = 1
	EmphasisStrokeWidth = 2
)

// HighlightGradientID is the gradient applied to the emphasized line.
const HighlightGradientID = "gradient-highlight"

// Tooltip label offsets from the latest point, in pixels.
const (
	labelOffsetX = 5
	labelOffsetY = 5
)

// Phase is the state machine phase.
type Phase string

const (
	PhaseDefault Phase = "default"
	PhaseActive  Phase = "active"
)

// PointerKind names a pointer event.
type PointerKind string

const (
	PointerMove  PointerKind = "move"
	PointerDrag  PointerKind = "drag"
	PointerLeave PointerKind = "leave"
)

// Pointer is a pointer event in render-target pixels.
type Pointer struct {
	Kind PointerKind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// Tooltip is the label of the highlighted series, in plot-local pixels.
type Tooltip struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	Anchor   string  `json:"anchor"`
	Baseline string  `json:"baseline,omitempty"`
	Color    string  `json:"color"`
	Pinned   bool    `json:"pinned,omitempty"`
}

// State is the highlight of one plot. The zero value highlights nothing.
type State struct {
	PlotID        string   `json:"plot_id"`
	Phase         Phase    `json:"phase"`
	ActiveCountry string   `json:"active_country,omitempty"`
	Tooltip       *Tooltip `json:"tooltip,omitempty"`
}

// CommandKind names a visual command.
type CommandKind string

const (
	// CommandResetStrokes puts every line back to its own gradient and
	// plain width.
	CommandResetStrokes CommandKind = "reset_strokes"
	// CommandEmphasize widens one line and paints it with the highlight
	// gradient.
	CommandEmphasize CommandKind = "emphasize"
	// CommandTooltip places the label.
	CommandTooltip CommandKind = "tooltip"
)

// Command is one declarative change to the rendered chart.
type Command struct {
	Kind        CommandKind `json:"kind"`
	Country     string      `json:"country,omitempty"`
	StrokeWidth float64     `json:"stroke_width,omitempty"`
	Stroke      string      `json:"stroke,omitempty"`
	Tooltip     *Tooltip    `json:"tooltip,omitempty"`
}

// Default returns the state right after p was drawn: the series whose point
// is nearest the top-right corner of the plot is highlighted. With nothing
// plotted the state is empty and no commands are issued.
func Default(p *plot.Plot) (State, []Command) {
	s := State{PlotID: p.ID, Phase: PhaseDefault}
	rec, _, ok := p.Nearest(p.Layout.Width, 0)
	if !ok {
		return s, nil
	}
	return activate(p, s, rec)
}

// HandlePointer applies one pointer event. Moves and drags over the plot area
// highlight the nearest series; anything else returns s unchanged with no
// commands.
func HandlePointer(p *plot.Plot, s State, ptr Pointer) (State, []Command) {
	if ptr.Kind != PointerMove && ptr.Kind != PointerDrag {
		return s, nil
	}
	x, y := p.ToPlot(ptr.X, ptr.Y)
	if !p.Contains(x, y) {
		return s, nil
	}
	rec, _, ok := p.Nearest(x, y)
	if !ok {
		return s, nil
	}
	return activate(p, State{PlotID: p.ID, Phase: PhaseActive}, rec)
}

// Changed reports whether moving from a to b alters what is on screen.
func Changed(a, b State) bool {
	if a.PlotID != b.PlotID || a.ActiveCountry != b.ActiveCountry {
		return true
	}
	if (a.Tooltip == nil) != (b.Tooltip == nil) {
		return true
	}
	return a.Tooltip != nil && *a.Tooltip != *b.Tooltip
}

func activate(p *plot.Plot, s State, rec int) (State, []Command) {
	r := p.Records[rec]
	tip := tooltipFor(p, rec)

	s.ActiveCountry = r.Country.Code
	s.Tooltip = &tip

	cmds := []Command{
		{Kind: CommandResetStrokes, StrokeWidth: PlainStrokeWidth},
		{
			Kind:        CommandEmphasize,
			Country:     r.Country.Code,
			StrokeWidth: EmphasisStrokeWidth,
			Stroke:      "url(#" + HighlightGradientID + ")",
		},
		{Kind: CommandTooltip, Country: r.Country.Code, Tooltip: &tip},
	}
	return s, cmds
}

func tooltipFor(p *plot.Plot, rec int) Tooltip {
	r := p.Records[rec]
	name := r.Country.Name
	if name == "" {
		name = r.Country.Code
	}
	tip := Tooltip{
		Text:   name + " " + FormatValue(r.Latest),
		Anchor: "start",
		Color:  p.Options.HighlightColor,
	}

	if p.Layout.IsMobile {
		// The right margin is too narrow on phones; pin the label inside
		// the plot instead.
		tip.X, tip.Y = 0, 0
		tip.Baseline = "hanging"
		tip.Pinned = true
		return tip
	}

	latest := p.LatestPosition(rec)
	tip.X = latest.X + labelOffsetX
	tip.Y = latest.Y + labelOffsetY
	return tip
}

// FormatValue renders a sample for labels: rounded, with thousands separators.
func FormatValue(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
