package curve

import "github.com/okian/pacechart/internal/domain/geom"

// DefaultDigits is the coordinate precision of generated paths.
const DefaultDigits = 3

// Cardinal builds a cardinal spline through pts in order.
//
// Tension 0 gives a Catmull-Rom-like curve; tension 1 gives straight
// segments. Interior segments are cubic Béziers whose tangents follow the
// neighbouring points; the end segments mirror the missing neighbour. One
// point yields a bare move, two points a straight line.
func Cardinal(pts []geom.Point, tension float64) string {
	p := NewPath(DefaultDigits)
	AppendCardinal(p, pts, tension)
	return p.String()
}

// AppendCardinal writes the spline through pts onto p.
func AppendCardinal(p *Path, pts []geom.Point, tension float64) {
	k := (1 - tension) / 6

	switch len(pts) {
	case 0:
		return
	case 1:
		p.MoveTo(pts[0].X, pts[0].Y)
		return
	case 2:
		p.MoveTo(pts[0].X, pts[0].Y)
		p.LineTo(pts[1].X, pts[1].Y)
		return
	}

	p.MoveTo(pts[0].X, pts[0].Y)
	n := len(pts)
	for i := 1; i < n; i++ {
		from, to := pts[i-1], pts[i]
		// Outer segments lack a neighbour past the end and use the
		// segment's other endpoint in its place.
		prev, next := to, from
		if i >= 2 {
			prev = pts[i-2]
		}
		if i+1 < n {
			next = pts[i+1]
		}
		p.BezierCurveTo(
			from.X+k*(to.X-prev.X), from.Y+k*(to.Y-prev.Y),
			to.X+k*(from.X-next.X), to.Y+k*(from.Y-next.Y),
			to.X, to.Y,
		)
	}
}
