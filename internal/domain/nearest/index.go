// Package nearest answers "which plotted point is closest to the pointer".
//
// The index is a 2-d tree stored implicitly in a permutation slice: the
// subtree over order[lo:hi] has its splitting point at the middle position,
// points before it are not greater on the split axis and points after it
// are not smaller. Axes alternate x, y, x, ... by depth.
//
// Ties are broken by construction index: among points at exactly the same
// distance the one that was passed to Build first wins.
package nearest

import (
	"math/rand/v2"

	"github.com/okian/pacechart/internal/domain/geom"
)

// LinearThreshold is the point count below which queries scan every point.
const LinearThreshold = 3

// Index is immutable after Build and safe for concurrent queries.
type Index struct {
	pts    []geom.Point
	order  []int
	linear bool
}

// Build indexes pts. Indices returned by Nearest refer to positions in pts.
// Non-finite points are kept out of the index and are never returned.
func Build(pts []geom.Point) *Index {
	ix := &Index{pts: append([]geom.Point(nil), pts...)}

	ix.order = make([]int, 0, len(pts))
	for i, p := range ix.pts {
		if p.Finite() {
			ix.order = append(ix.order, i)
		}
	}

	if len(ix.order) < LinearThreshold {
		ix.linear = true
		return ix
	}
	ix.build(0, len(ix.order), 0)
	return ix
}

// Len returns the number of indexed (finite) points.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Linear reports whether queries fall back to a linear scan.
func (ix *Index) Linear() bool {
	return ix.linear
}

// Point returns the i-th point passed to Build.
func (ix *Index) Point(i int) geom.Point {
	return ix.pts[i]
}

// Nearest returns the index of the point closest to (x, y). ok is false
// when the index is empty or the query is not a finite position.
func (ix *Index) Nearest(x, y float64) (int, bool) {
	q := geom.Point{X: x, Y: y}
	if len(ix.order) == 0 || !q.Finite() {
		return -1, false
	}

	s := search{q: q, best: -1}
	if ix.linear {
		for _, i := range ix.order {
			s.offer(i, ix.pts[i])
		}
	} else {
		ix.search(&s, 0, len(ix.order), 0)
	}
	return s.best, true
}

type search struct {
	q     geom.Point
	best  int
	bestD float64
}

// offer records i if it is closer than the current best, or as close with a
// lower construction index.
func (s *search) offer(i int, p geom.Point) {
	d := s.q.Dist2(p)
	if s.best < 0 || d < s.bestD || (d == s.bestD && i < s.best) {
		s.best, s.bestD = i, d
	}
}

func (ix *Index) search(s *search, lo, hi, depth int) {
	if lo >= hi {
		return
	}
	mid := lo + (hi-lo)/2
	i := ix.order[mid]
	p := ix.pts[i]
	s.offer(i, p)

	diff := coord(s.q, depth) - coord(p, depth)
	nearLo, nearHi, farLo, farHi := lo, mid, mid+1, hi
	if diff > 0 {
		nearLo, nearHi, farLo, farHi = mid+1, hi, lo, mid
	}

	ix.search(s, nearLo, nearHi, depth+1)
	// Equal distances must still be visited so the tie-break can see them.
	if diff*diff <= s.bestD {
		ix.search(s, farLo, farHi, depth+1)
	}
}

func (ix *Index) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	mid := lo + (hi-lo)/2
	ix.selectNth(lo, hi, mid, depth)
	ix.build(lo, mid, depth+1)
	ix.build(mid+1, hi, depth+1)
}

// less orders two construction indices on the axis for depth, falling back
// to the index itself so the order is total.
func (ix *Index) less(a, b, depth int) bool {
	ca, cb := coord(ix.pts[a], depth), coord(ix.pts[b], depth)
	if ca != cb {
		return ca < cb
	}
	return a < b
}

// selectNth rearranges order[lo:hi] so position k holds the element that
// would be there if the range were sorted, with smaller elements before it
// and larger ones after it. Expected linear time.
func (ix *Index) selectNth(lo, hi, k, depth int) {
	o := ix.order
	for hi-lo > 1 {
		pivot := lo + rand.IntN(hi-lo)
		o[pivot], o[hi-1] = o[hi-1], o[pivot]

		store := lo
		for j := lo; j < hi-1; j++ {
			if ix.less(o[j], o[hi-1], depth) {
				o[store], o[j] = o[j], o[store]
				store++
			}
		}
		o[store], o[hi-1] = o[hi-1], o[store]

		switch {
		case k == store:
			return
		case k < store:
			hi = store
		default:
			lo = store + 1
		}
	}
}

func coord(p geom.Point, depth int) float64 {
	if depth%2 == 0 {
		return p.X
	}
	return p.Y
}
