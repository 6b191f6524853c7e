package repository

import (
	"time"

	"github.com/okian/pacechart/internal/domain/model"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithSeed seeds the store with an initial dataset, published as version 1.
func WithSeed(raw *model.RawSeriesMap) Option {
	return func(s *TreapStore) {
		s.seed = raw
	}
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}
