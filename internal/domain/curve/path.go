// Package curve turns point sequences into SVG path data.
package curve

import (
	"math"
	"strconv"
	"strings"
)

// Path accumulates SVG path commands. Coordinates are rounded to a fixed
// number of decimals.
type Path struct {
	b      strings.Builder
	digits int
}

// NewPath returns a path that rounds coordinates to digits decimals.
// A negative digits value keeps full precision.
func NewPath(digits int) *Path {
	return &Path{digits: digits}
}

// MoveTo starts a new subpath at (x, y).
func (p *Path) MoveTo(x, y float64) {
	p.b.WriteByte('M')
	p.pair(x, y)
}

// LineTo draws a straight segment to (x, y).
func (p *Path) LineTo(x, y float64) {
	p.b.WriteByte('L')
	p.pair(x, y)
}

// BezierCurveTo draws a cubic Bézier segment ending at (x, y).
func (p *Path) BezierCurveTo(x1, y1, x2, y2, x, y float64) {
	p.b.WriteByte('C')
	p.pair(x1, y1)
	p.b.WriteByte(',')
	p.pair(x2, y2)
	p.b.WriteByte(',')
	p.pair(x, y)
}

// String returns the accumulated path data.
func (p *Path) String() string {
	return p.b.String()
}

func (p *Path) pair(x, y float64) {
	p.num(x)
	p.b.WriteByte(',')
	p.num(y)
}

func (p *Path) num(v float64) {
	p.b.WriteString(FormatNumber(v, p.digits))
}

// FormatNumber renders v in the shortest decimal form after rounding to
// digits decimals (digits < 0 disables rounding). -0 renders as "0".
func FormatNumber(v float64, digits int) string {
	if digits >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		scale := math.Pow(10, float64(digits))
		v = math.Round(v*scale) / scale
	}
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
