// Package plot runs one draw pass: it normalizes the raw series, resolves
// the layout, builds the scales, generates one path per country and indexes
// every plotted point for nearest-point queries.
//
// A Plot is immutable once Build returns. A redraw builds a new Plot; nothing
// from the previous one is reused.
package plot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pacechart/internal/domain/curve"
	"github.com/okian/pacechart/internal/domain/geom"
	"github.com/okian/pacechart/internal/domain/layout"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/nearest"
	"github.com/okian/pacechart/internal/domain/normalize"
	"github.com/okian/pacechart/internal/domain/scale"
)

// Plot is the geometry of one draw.
type Plot struct {
	ID       string
	Options  Options
	Records  []model.SeriesRecord
	Excluded []model.Exclusion
	Layout   model.LayoutConfig
	Scales   scale.Set
	// Paths[i] is the SVG path data of Records[i].
	Paths []string
	// Points and Positions are parallel: one entry per plotted sample, in
	// record order then chronological order. Positions are plot-local pixels.
	Points    []model.PlotPoint
	Positions []geom.Point
	Index     *nearest.Index

	IndexBuildTime time.Duration
}

// Build runs the draw pass for a container of the given width. Countries that
// do not qualify are listed in Excluded; only option problems are errors,
// and they wrap ErrConfiguration.
func Build(raw *model.RawSeriesMap, resolver normalize.Resolver, opts Options, containerWidth float64) (*Plot, error) {
	l, err := layout.Resolve(containerWidth, opts.Layout)
	if err != nil {
		return nil, err
	}
	if l.Width < 0 || l.Height < 0 {
		return nil, fmt.Errorf("%w: %vx%v at container width %v", ErrNegativeDimensions, l.Width, l.Height, containerWidth)
	}

	norm := normalize.Normalize(raw, resolver, opts.Normalize)
	scales := scale.Build(norm.Records, l)

	p := &Plot{
		ID:       uuid.NewString(),
		Options:  opts,
		Records:  norm.Records,
		Excluded: norm.Excluded,
		Layout:   l,
		Scales:   scales,
		Paths:    make([]string, len(norm.Records)),
	}

	total := 0
	for _, r := range norm.Records {
		total += r.Length
	}
	p.Points = make([]model.PlotPoint, 0, total)
	p.Positions = make([]geom.Point, 0, total)

	for ri, r := range norm.Records {
		start := len(p.Positions)
		for i, v := range r.Samples {
			alignment := r.Length - 1 - i
			p.Points = append(p.Points, model.PlotPoint{Series: ri, Value: v, Alignment: alignment})
			p.Positions = append(p.Positions, geom.Point{X: scales.XFor(alignment), Y: scales.Y.Apply(v)})
		}
		p.Paths[ri] = curve.Cardinal(p.Positions[start:], opts.Tension)
	}

	began := time.Now()
	p.Index = nearest.Build(p.Positions)
	p.IndexBuildTime = time.Since(began)

	return p, nil
}

// Area is the plot rectangle in plot-local pixels.
func (p *Plot) Area() geom.Rect {
	return geom.Rect{MaxX: p.Layout.Width, MaxY: p.Layout.Height}
}

// Contains reports whether a plot-local position lies on the plot area.
func (p *Plot) Contains(x, y float64) bool {
	return p.Area().Contains(geom.Point{X: x, Y: y})
}

// ToPlot converts render-target pixels to plot-local pixels.
func (p *Plot) ToPlot(x, y float64) (float64, float64) {
	return x - p.Layout.Margin.Left, y - p.Layout.Margin.Top
}

// Nearest returns the record owning the point closest to the plot-local
// position (x, y), and that point's index in Points.
func (p *Plot) Nearest(x, y float64) (record, point int, ok bool) {
	point, ok = p.Index.Nearest(x, y)
	if !ok {
		return -1, -1, false
	}
	return p.Points[point].Series, point, true
}

// Record looks up a plotted country by code.
func (p *Plot) Record(code string) (int, bool) {
	for i, r := range p.Records {
		if r.Country.Code == code {
			return i, true
		}
	}
	return -1, false
}

// LatestPosition is where the most recent sample of record i is drawn.
func (p *Plot) LatestPosition(i int) geom.Point {
	r := p.Records[i]
	return geom.Point{X: p.Scales.XFor(0), Y: p.Scales.Y.Apply(r.Latest)}
}

// IndexPoints is the number of points held by the nearest-point index.
func (p *Plot) IndexPoints() int {
	return p.Index.Len()
}
