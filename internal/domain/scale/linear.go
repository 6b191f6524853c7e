// Package scale builds the linear mappings from data space to pixels.
package scale

import "math"

// DefaultTickCount is the tick count Nice rounds to when none is given.
const DefaultTickCount = 10

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Linear maps [D0,D1] onto [R0,R1]. The zero value maps everything to 0.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// NewLinear returns a scale with the given domain and range.
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Apply maps v from the domain to the range without clamping. A degenerate
// domain maps every value to the middle of the range.
func (s Linear) Apply(v float64) float64 {
	if s.D0 == s.D1 {
		return s.R0 + (s.R1-s.R0)/2
	}
	t := (v - s.D0) / (s.D1 - s.D0)
	return s.R0 + t*(s.R1-s.R0)
}

// Domain returns the domain bounds.
func (s Linear) Domain() (float64, float64) { return s.D0, s.D1 }

// Range returns the range bounds.
func (s Linear) Range() (float64, float64) { return s.R0, s.R1 }

// Nice extends the domain outward to round values so that roughly count
// ticks fall on it. A degenerate or non-finite domain is returned unchanged.
func (s Linear) Nice(count int) Linear {
	if count <= 0 {
		count = DefaultTickCount
	}
	start, stop := s.D0, s.D1
	if !finite(start) || !finite(stop) || start == stop {
		return s
	}
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	step := tickIncrement(start, stop, count)
	if step > 0 {
		start = math.Floor(start/step) * step
		stop = math.Ceil(stop/step) * step
		step = tickIncrement(start, stop, count)
	} else if step < 0 {
		start = math.Ceil(start*step) / step
		stop = math.Floor(stop*step) / step
		step = tickIncrement(start, stop, count)
	}
	switch {
	case step > 0:
		start = math.Floor(start/step) * step
		stop = math.Ceil(stop/step) * step
	case step < 0:
		start = math.Ceil(start*step) / step
		stop = math.Floor(stop*step) / step
	default:
		return s
	}

	if reverse {
		start, stop = stop, start
	}
	s.D0, s.D1 = posZero(start), posZero(stop)
	return s
}

// Ticks returns about count round values spanning the domain, in domain order.
func (s Linear) Ticks(count int) []float64 {
	start, stop := s.D0, s.D1
	if count <= 0 || !finite(start) || !finite(stop) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	step := tickIncrement(start, stop, count)
	if step == 0 || !finite(step) {
		return nil
	}

	var out []float64
	if step > 0 {
		lo, hi := math.Ceil(start/step), math.Floor(stop/step)
		n := int(math.Ceil(hi - lo + 1))
		for i := 0; i < n; i++ {
			out = append(out, (lo+float64(i))*step)
		}
	} else {
		step = -step
		lo, hi := math.Ceil(start*step), math.Floor(stop*step)
		n := int(math.Ceil(hi - lo + 1))
		for i := 0; i < n; i++ {
			out = append(out, (lo+float64(i))/step)
		}
	}

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// tickIncrement returns the tick step for [start, stop]: a positive power of
// ten times 1, 2, 5 or 10, or, for steps below one, the negated reciprocal.
func tickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / math.Max(0, float64(count))
	power := math.Floor(math.Log(step) / math.Ln10)
	err := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}

// posZero turns -0, which the reciprocal branches can produce, into 0.
func posZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
