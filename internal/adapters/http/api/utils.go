package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// DefaultWidth is the draw width used when a request does not name one.
const DefaultWidth = 960

// floatParam reads a finite float query parameter, def when it is absent.
func floatParam(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrBadRequest, name)
	}
	return v, nil
}

// widthParam reads a positive width.
func widthParam(q url.Values) (float64, error) {
	w, err := floatParam(q, "width", DefaultWidth)
	if err != nil {
		return 0, err
	}
	if w <= 0 {
		return 0, fmt.Errorf("%w: width must be positive", ErrBadRequest)
	}
	return w, nil
}

func formatVersion(v uint64) string {
	return strconv.FormatUint(v, 10)
}
