package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSeries is returned when a series document cannot be decoded.
var ErrInvalidSeries = errors.New("invalid series document")

// Series is one entry of a RawSeriesMap: a country code and its samples,
// most recent first.
type Series struct {
	Code    string    `json:"code"`
	Samples []float64 `json:"samples"`
}

// RawSeriesMap maps country codes to samples (most recent first) and keeps
// insertion order. The zero value is an empty map ready to use.
type RawSeriesMap struct {
	entries []Series
	index   map[string]int
}

// NewRawSeriesMap builds a map from entries in the given order. Later
// duplicates replace earlier samples but keep the first position.
func NewRawSeriesMap(entries ...Series) *RawSeriesMap {
	m := &RawSeriesMap{}
	for _, e := range entries {
		m.Set(e.Code, e.Samples)
	}
	return m
}

// Set stores a copy of samples under code.
func (m *RawSeriesMap) Set(code string, samples []float64) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	cp := append([]float64(nil), samples...)
	if i, ok := m.index[code]; ok {
		m.entries[i].Samples = cp
		return
	}
	m.index[code] = len(m.entries)
	m.entries = append(m.entries, Series{Code: code, Samples: cp})
}

// Get returns the samples stored for code. The slice must not be modified.
func (m *RawSeriesMap) Get(code string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[code]
	if !ok {
		return nil, false
	}
	return m.entries[i].Samples, true
}

// Len returns the number of countries.
func (m *RawSeriesMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Codes returns country codes in insertion order.
func (m *RawSeriesMap) Codes() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Code
	}
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *RawSeriesMap) Each(fn func(code string, samples []float64) bool) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		if !fn(e.Code, e.Samples) {
			return
		}
	}
}

// Clone returns a deep copy.
func (m *RawSeriesMap) Clone() *RawSeriesMap {
	out := &RawSeriesMap{}
	if m == nil {
		return out
	}
	out.entries = make([]Series, len(m.entries))
	out.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		out.entries[i] = Series{Code: e.Code, Samples: append([]float64(nil), e.Samples...)}
		out.index[e.Code] = i
	}
	return out
}

// MarshalJSON encodes the map as a JSON object keeping insertion order.
func (m *RawSeriesMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, e := range m.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Code)
			if err != nil {
				return nil, err
			}
			samples := e.Samples
			if samples == nil {
				samples = []float64{}
			}
			val, err := json.Marshal(samples)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of code -> samples keeping the
// document's key order.
func (m *RawSeriesMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeries, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object", ErrInvalidSeries)
	}

	next := RawSeriesMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeries, err)
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected key", ErrInvalidSeries)
		}
		var samples []float64
		if err := dec.Decode(&samples); err != nil {
			return fmt.Errorf("%w: country %q: %v", ErrInvalidSeries, code, err)
		}
		next.Set(code, samples)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeries, err)
	}
	*m = next
	return nil
}
