package chart

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/okian/pacechart/internal/domain/highlight"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/render/scene"
)

const (
	axisGap      = 10
	tickSize     = 6
	lineColor    = "255,255,255"
	axisColor    = "#888"
	startOpacity = 0.2
	hlOpacity    = 0.1
)

// GradientID is the id of the stroke gradient of one country.
func GradientID(code string) string {
	return "gradient-" + code
}

// LineClass is the class that identifies the path of one country.
func LineClass(code string) string {
	return "country-" + code
}

// Scene builds the document for p with every line in its plain style.
func Scene(p *plot.Plot) *scene.Node {
	l := p.Layout
	root := scene.New("svg.pacechart").
		AttrFloat("width", l.Width+l.Margin.Left+l.Margin.Right).
		AttrFloat("height", l.OuterHeight()).
		Attr("data-plot", p.ID)

	defs := scene.AppendSelect(root, "defs")
	highlightGradient(defs, p.Options.HighlightColor)
	countryGradients(defs, p)

	g := scene.AppendSelect(root, "g.plot").
		Attr("transform", fmt.Sprintf("translate(%s,%s)", scene.FormatFloat(l.Margin.Left), scene.FormatFloat(l.Margin.Top)))

	xAxis(g, p)
	yAxis(g, p)

	keys := make([]string, len(p.Records))
	for i, r := range p.Records {
		keys[i] = r.Country.Code
	}
	lines := scene.Join(g, "path.line", keys)
	for i, n := range lines.Nodes {
		code := p.Records[i].Country.Code
		n.AddClass(LineClass(code)).
			Attr("stroke", "url(#"+GradientID(code)+")").
			Attr("d", p.Paths[i]).
			Style("stroke-width", scene.FormatFloat(highlight.PlainStrokeWidth)).
			Style("fill", "transparent")
	}

	scene.AppendSelect(g, "rect.overlay").
		Attr("x", "0").
		Attr("y", "0").
		AttrFloat("width", l.Width).
		AttrFloat("height", l.Height).
		Style("fill", "transparent").
		Style("cursor", "crosshair")

	return root
}

func highlightGradient(defs *scene.Node, color string) {
	g := scene.AppendSelect(defs, "linearGradient.highlight").Attr("id", highlight.HighlightGradientID)
	scene.AppendSelect(g, "stop.start").
		Attr("offset", "0%").
		Attr("stop-color", color).
		AttrFloat("stop-opacity", hlOpacity)
	scene.AppendSelect(g, "stop.end").
		Attr("offset", "100%").
		Attr("stop-color", color).
		AttrFloat("stop-opacity", 1)
}

func countryGradients(defs *scene.Node, p *plot.Plot) {
	keys := make([]string, len(p.Records))
	for i, r := range p.Records {
		keys[i] = r.Country.Code
	}
	res := scene.Join(defs, "linearGradient.country", keys)
	for i, n := range res.Nodes {
		r := p.Records[i]
		color := fmt.Sprintf("rgba(%s,%s)", lineColor, scene.FormatFloat(p.Scales.Alpha.Apply(r.Latest)))
		n.Attr("id", GradientID(r.Country.Code))
		scene.AppendSelect(n, "stop.start").
			Attr("offset", "0%").
			Attr("stop-color", color).
			AttrFloat("stop-opacity", startOpacity)
		scene.AppendSelect(n, "stop.end").
			Attr("offset", "100%").
			Attr("stop-color", color).
			AttrFloat("stop-opacity", 1)
	}
}

// xAxis labels steps before the most recent sample along the bottom edge.
func xAxis(g *scene.Node, p *plot.Plot) {
	axis := scene.AppendSelect(g, "g.axis.x").
		Attr("transform", "translate(0,"+scene.FormatFloat(p.Layout.Height)+")")
	_, hi := p.Scales.X.Domain()

	ticks := p.Scales.X.Ticks(p.Options.MinorTickCounts.X)
	keys := make([]string, len(ticks))
	for i, t := range ticks {
		keys[i] = scene.FormatFloat(t)
	}
	res := scene.Join(axis, "g.tick", keys)
	for i, n := range res.Nodes {
		x := p.Scales.X.Apply(ticks[i])
		n.Attr("transform", "translate("+scene.FormatFloat(x)+",0)")
		scene.AppendSelect(n, "line").Attr("y2", scene.FormatFloat(tickSize)).Attr("stroke", axisColor)
		scene.AppendSelect(n, "text").
			Attr("y", scene.FormatFloat(tickSize+axisGap)).
			Attr("text-anchor", "middle").
			Style("fill", axisColor).
			SetText(humanize.Comma(int64(math.Round(hi - ticks[i]))))
	}
}

// yAxis labels values along the right edge.
func yAxis(g *scene.Node, p *plot.Plot) {
	axis := scene.AppendSelect(g, "g.axis.y").
		Attr("transform", "translate("+scene.FormatFloat(p.Layout.Width+axisGap)+",0)")

	ticks := p.Scales.Y.Ticks(p.Options.MinorTickCounts.Y)
	keys := make([]string, len(ticks))
	for i, t := range ticks {
		keys[i] = scene.FormatFloat(t)
	}
	res := scene.Join(axis, "g.tick", keys)
	for i, n := range res.Nodes {
		y := p.Scales.Y.Apply(ticks[i])
		n.Attr("transform", "translate(0,"+scene.FormatFloat(y)+")")
		scene.AppendSelect(n, "line").Attr("x2", scene.FormatFloat(tickSize)).Attr("stroke", axisColor)
		scene.AppendSelect(n, "text").
			Attr("x", scene.FormatFloat(tickSize+2)).
			Attr("dominant-baseline", "middle").
			Style("fill", axisColor).
			SetText(humanize.Commaf(ticks[i]))
	}
}

// Apply performs highlight commands on a document built by Scene.
func Apply(doc *scene.Node, cmds []highlight.Command) {
	g := doc.Select("g.plot")
	if g == nil {
		return
	}
	for _, c := range cmds {
		switch c.Kind {
		case highlight.CommandResetStrokes:
			for _, n := range g.SelectAll("path.line") {
				n.Style("stroke-width", scene.FormatFloat(c.StrokeWidth)).
					Attr("stroke", "url(#"+GradientID(n.Key)+")")
			}
		case highlight.CommandEmphasize:
			n := g.Select("path." + LineClass(c.Country))
			if n == nil {
				continue
			}
			n.Style("stroke-width", scene.FormatFloat(c.StrokeWidth)).Attr("stroke", c.Stroke)
		case highlight.CommandTooltip:
			if c.Tooltip == nil {
				continue
			}
			t := scene.AppendSelect(g, "text.tooltip").
				AttrFloat("x", c.Tooltip.X).
				AttrFloat("y", c.Tooltip.Y).
				Attr("text-anchor", c.Tooltip.Anchor).
				Style("fill", c.Tooltip.Color)
			if c.Tooltip.Baseline != "" {
				t.Attr("dominant-baseline", c.Tooltip.Baseline)
			}
			t.SetText(c.Tooltip.Text)
		}
	}
}
