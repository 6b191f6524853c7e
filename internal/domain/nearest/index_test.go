package nearest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/okian/pacechart/internal/domain/geom"
	. "github.com/smartystreets/goconvey/convey"
)

func bruteForce(pts []geom.Point, q geom.Point) int {
	best, bestD := -1, math.Inf(1)
	for i, p := range pts {
		if !p.Finite() {
			continue
		}
		if d := q.Dist2(p); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func TestIndex(t *testing.T) {
	Convey("Given an empty index", t, func() {
		ix := Build(nil)

		Convey("Then queries should report no point", func() {
			i, ok := ix.Nearest(10, 10)
			So(ok, ShouldBeFalse)
			So(i, ShouldEqual, -1)
			So(ix.Len(), ShouldEqual, 0)
			So(ix.Linear(), ShouldBeTrue)
		})
	})

	Convey("Given one and two points", t, func() {
		one := Build([]geom.Point{{X: 5, Y: 5}})
		two := Build([]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}})

		Convey("Then the linear fallback should answer", func() {
			So(one.Linear(), ShouldBeTrue)
			i, ok := one.Nearest(-100, 300)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 0)

			i, ok = two.Nearest(7, 1)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 1)
		})
	})

	Convey("Given duplicate points", t, func() {
		pts := []geom.Point{{X: 1, Y: 1}, {X: 3, Y: 3}, {X: 3, Y: 3}, {X: 8, Y: 2}, {X: 3, Y: 3}}
		ix := Build(pts)

		Convey("Then the first inserted should win", func() {
			So(ix.Linear(), ShouldBeFalse)
			i, ok := ix.Nearest(3.1, 3)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 1)
		})
	})

	Convey("Given a query equidistant from two points", t, func() {
		pts := []geom.Point{{X: 10, Y: 0}, {X: 50, Y: 50}, {X: 0, Y: 0}, {X: 90, Y: 90}}
		ix := Build(pts)

		Convey("Then the lower construction index should win", func() {
			i, _ := ix.Nearest(5, 0)
			So(i, ShouldEqual, 0)
		})
	})

	Convey("Given non-finite points", t, func() {
		pts := []geom.Point{{X: math.NaN(), Y: 0}, {X: 4, Y: 4}, {X: math.Inf(1), Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 1}}
		ix := Build(pts)

		Convey("Then they should never be returned", func() {
			So(ix.Len(), ShouldEqual, 3)
			i, ok := ix.Nearest(0, 0)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 4)
		})

		Convey("Then a non-finite query should report no point", func() {
			_, ok := ix.Nearest(math.NaN(), 0)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given the caller mutates its slice after Build", t, func() {
		pts := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}}
		ix := Build(pts)
		pts[0] = geom.Point{X: 100, Y: 100}

		Convey("Then the index should be unaffected", func() {
			So(ix.Point(0), ShouldResemble, geom.Point{X: 0, Y: 0})
			i, _ := ix.Nearest(1, 1)
			So(i, ShouldEqual, 0)
		})
	})
}

func TestNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(400)
		pts := make([]geom.Point, n)
		for i := range pts {
			// Coarse coordinates force many shared axis values and ties.
			pts[i] = geom.Point{X: float64(rng.Intn(40)), Y: float64(rng.Intn(40))}
		}
		ix := Build(pts)

		for q := 0; q < 50; q++ {
			qp := geom.Point{X: rng.Float64()*60 - 10, Y: rng.Float64()*60 - 10}
			if q%5 == 0 {
				qp = geom.Point{X: float64(rng.Intn(40)), Y: float64(rng.Intn(40))}
			}
			want := bruteForce(pts, qp)
			got, ok := ix.Nearest(qp.X, qp.Y)
			if n == 0 {
				if ok {
					t.Fatalf("trial %d: empty index returned %d", trial, got)
				}
				continue
			}
			if !ok || got != want {
				t.Fatalf("trial %d query %v: got %d (ok=%v) want %d", trial, qp, got, ok, want)
			}
		}
	}
}

func BenchmarkNearest(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	pts := make([]geom.Point, 50_000)
	for i := range pts {
		pts[i] = geom.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 500}
	}
	ix := Build(pts)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Nearest(rng.Float64()*1000, rng.Float64()*500)
	}
}

func BenchmarkBuild(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	pts := make([]geom.Point, 50_000)
	for i := range pts {
		pts[i] = geom.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 500}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(pts)
	}
}
