// Package repository holds the current series dataset and ranks countries by
// their most recent raw sample.
package repository

import (
	"context"
	"time"

	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/types"
)

// Snapshot is an immutable view of the dataset. Version increases with every
// write; the zero version is the empty store.
type Snapshot struct {
	Series    *model.RawSeriesMap
	Version   uint64
	UpdatedAt time.Time
}

// Store provides read/write access to the series dataset.
type Store interface {
	// Replace swaps the whole dataset and returns the new version.
	Replace(ctx context.Context, raw *model.RawSeriesMap) (uint64, error)

	// Upsert sets the samples of one country and returns the new version.
	// A new country is appended after the existing ones.
	Upsert(ctx context.Context, code string, samples []float64) (uint64, error)

	// Snapshot returns the latest published dataset.
	Snapshot() Snapshot

	// Rank returns the position of a country by latest value.
	// Returns ErrNotFound if the country is unknown or has no finite latest value.
	Rank(ctx context.Context, code string) (types.Entry, error)

	// TopN returns the first n countries ordered by latest value desc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of ranked countries.
	Count(ctx context.Context) int
}
