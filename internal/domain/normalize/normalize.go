// Package normalize turns raw per-country samples into the uniform records a
// draw works with.
//
// A country survives when its metadata resolves with a known population of
// at least PopulationThreshold and its peak sample is strictly greater than
// PeakThreshold. Everything else is reported as an Exclusion, never an error.
package normalize

import (
	"math"

	"github.com/okian/pacechart/internal/domain/model"
)

// Default thresholds.
const (
	DefaultPopulationThreshold = 1_000_000
	DefaultPeakThreshold       = 100
)

// Exclusion reasons.
const (
	ReasonUnknownCountry  = "unknown_country"
	ReasonNoPopulation    = "no_population"
	ReasonSmallPopulation = "population_below_threshold"
	ReasonEmptySeries     = "empty_series"
	ReasonInvalidSample   = "invalid_sample"
	ReasonLowPeak         = "peak_below_threshold"
	ReasonDuplicate       = "duplicate_country"
)

// Resolver looks up country metadata by code.
type Resolver interface {
	Resolve(code string) (model.CountryMeta, bool)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(code string) (model.CountryMeta, bool)

// Resolve calls f(code).
func (f ResolverFunc) Resolve(code string) (model.CountryMeta, bool) { return f(code) }

// Options holds the filtering thresholds.
type Options struct {
	PopulationThreshold float64
	PeakThreshold       float64
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		PopulationThreshold: DefaultPopulationThreshold,
		PeakThreshold:       DefaultPeakThreshold,
	}
}

// Result is the outcome of Normalize. Records keep the raw map's key order.
type Result struct {
	Records  []model.SeriesRecord
	Excluded []model.Exclusion
}

// Normalize filters and reshapes raw. A nil resolver excludes every country.
// Record codes are unique: when two raw keys resolve to the same country,
// the first surviving key wins and later ones are excluded as duplicates.
func Normalize(raw *model.RawSeriesMap, resolver Resolver, opts Options) Result {
	res := Result{Records: make([]model.SeriesRecord, 0, raw.Len())}
	seen := make(map[string]struct{}, raw.Len())

	raw.Each(func(code string, samples []float64) bool {
		rec, reason := normalizeOne(code, samples, resolver, opts)
		if reason == "" {
			if _, dup := seen[rec.Country.Code]; dup {
				reason = ReasonDuplicate
			}
		}
		if reason != "" {
			res.Excluded = append(res.Excluded, model.Exclusion{Code: code, Reason: reason})
			return true
		}
		seen[rec.Country.Code] = struct{}{}
		res.Records = append(res.Records, rec)
		return true
	})
	return res
}

func normalizeOne(code string, raw []float64, resolver Resolver, opts Options) (model.SeriesRecord, string) {
	if resolver == nil {
		return model.SeriesRecord{}, ReasonUnknownCountry
	}
	meta, ok := resolver.Resolve(code)
	if !ok {
		return model.SeriesRecord{}, ReasonUnknownCountry
	}
	if !meta.HasPopulation() {
		return model.SeriesRecord{}, ReasonNoPopulation
	}
	if *meta.Population < opts.PopulationThreshold {
		return model.SeriesRecord{}, ReasonSmallPopulation
	}
	if len(raw) == 0 {
		return model.SeriesRecord{}, ReasonEmptySeries
	}
	if meta.Code == "" {
		meta.Code = code
	}

	// raw is newest first; records run oldest first.
	n := len(raw)
	samples := make([]float64, n)
	peak := math.Inf(-1)
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.SeriesRecord{}, ReasonInvalidSample
		}
		samples[n-1-i] = v
		if v > peak {
			peak = v
		}
	}
	if peak <= opts.PeakThreshold {
		return model.SeriesRecord{}, ReasonLowPeak
	}

	return model.SeriesRecord{
		Country: meta,
		Samples: samples,
		Peak:    peak,
		Latest:  samples[n-1],
		Length:  n,
	}, ""
}
