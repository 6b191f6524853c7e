package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/types"
	"github.com/okian/pacechart/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: latest DESC, then code ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the leaders
// table from highest to lowest latest value. Node sizes make Rank O(log n).
//
// Only countries whose most recent sample is finite are ranked; every
// country, ranked or not, is part of the published dataset.

// treap node
type node struct {
	code   string
	latest float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aLatest, aCode) should appear before (bLatest, bCode).
func less(aLatest float64, aCode string, bLatest float64, bCode string) bool {
	if aLatest != bLatest {
		return aLatest > bLatest
	}
	return aCode < bCode
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, code string, latest float64) *node {
	if n == nil {
		return &node{code: code, latest: latest, prio: rand.Uint64(), size: 1}
	}
	if less(latest, code, n.latest, n.code) {
		n.left = insert(n.left, code, latest)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, code, latest)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, code string, latest float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case latest == n.latest && code == n.code:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, code, latest)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, code, latest)
		}
	case less(latest, code, n.latest, n.code):
		n.left = deleteNode(n.left, code, latest)
	default:
		n.right = deleteNode(n.right, code, latest)
	}
	fix(n)
	return n
}

// countAbove counts nodes whose latest value is strictly greater than v.
func countAbove(n *node, v float64) int {
	count := 0
	for n != nil {
		if n.latest > v {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{Country: n.code, Latest: n.latest})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// assignRanks gives tied latest values the same rank and skips the ranks
// they occupy ("1, 1, 3"). out must start at the top of the table.
func assignRanks(out []types.Entry) {
	for i := range out {
		if i > 0 && out[i].Latest == out[i-1].Latest {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
}

// TreapStore is safe for concurrent use. Writers are serialized; snapshots
// are published through an atomic pointer so readers never block writers.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	ranked  map[string]float64
	series  *model.RawSeriesMap
	version uint64

	snapshot atomic.Pointer[Snapshot]

	metricsUpdateInterval time.Duration
	seed                  *model.RawSeriesMap
	now                   func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) (*TreapStore, error) {
	s := &TreapStore{
		ranked:                make(map[string]float64),
		series:                model.NewRawSeriesMap(),
		metricsUpdateInterval: 5 * time.Second,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.snapshot.Store(&Snapshot{Series: model.NewRawSeriesMap(), UpdatedAt: s.now()})
	if s.seed != nil {
		if _, err := s.Replace(ctx, s.seed); err != nil {
			return nil, err
		}
		s.seed = nil
	}

	s.startMetricsUpdater(ctx)
	return s, nil
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Replace implements Store.Replace in O(n log n) expected time.
func (s *TreapStore) Replace(_ context.Context, raw *model.RawSeriesMap) (uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	bad, invalid := "", false
	raw.Each(func(code string, _ []float64) bool {
		if !validCode(code) {
			bad, invalid = code, true
			return false
		}
		return true
	})
	if invalid {
		metrics.RecordErrorByComponent("repository", "invalid_code")
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, bad)
	}

	next := raw.Clone()
	ranked := make(map[string]float64, next.Len())
	var root *node
	next.Each(func(code string, samples []float64) bool {
		if v, ok := latestOf(samples); ok {
			ranked[code] = v
			root = insert(root, code, v)
		}
		return true
	})

	s.mu.Lock()
	s.root = root
	s.ranked = ranked
	s.series = next
	v := s.publishLocked()
	s.mu.Unlock()

	metrics.UpdateTrackedCountries(len(ranked))
	return v, nil
}

// Upsert implements Store.Upsert in O(n) for the snapshot copy plus
// O(log n) expected for the ranking.
func (s *TreapStore) Upsert(_ context.Context, code string, samples []float64) (uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if !validCode(code) {
		metrics.RecordErrorByComponent("repository", "invalid_code")
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	s.mu.Lock()
	if old, ok := s.ranked[code]; ok {
		s.root = deleteNode(s.root, code, old)
		delete(s.ranked, code)
	}
	if v, ok := latestOf(samples); ok {
		s.ranked[code] = v
		s.root = insert(s.root, code, v)
	}
	s.series.Set(code, samples)
	v := s.publishLocked()
	count := len(s.ranked)
	s.mu.Unlock()

	metrics.UpdateTrackedCountries(count)
	return v, nil
}

// publishLocked bumps the version and publishes a copy of the dataset.
// The write lock must be held.
func (s *TreapStore) publishLocked() uint64 {
	s.version++
	s.snapshot.Store(&Snapshot{
		Series:    s.series.Clone(),
		Version:   s.version,
		UpdatedAt: s.now(),
	})
	metrics.UpdateStoreVersion(s.version)
	return s.version
}

// Snapshot implements Store.Snapshot. The returned map is shared and must
// not be modified.
func (s *TreapStore) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Rank returns the current rank and latest value of a country in O(log n).
func (s *TreapStore) Rank(_ context.Context, code string) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.ranked[code]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{Rank: countAbove(s.root, v) + 1, Country: code, Latest: v}, nil
}

// TopN returns the top N entries ordered by latest value desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, &out)
	assignRanks(out)
	return out, nil
}

// Count returns the number of ranked countries.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranked)
}

// startMetricsUpdater starts a background goroutine that refreshes store gauges.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateTrackedCountries(s.Count(ctx))
				metrics.UpdateStoreVersion(s.Snapshot().Version)
			}
		}
	}()
}

// latestOf returns the most recent sample when it is finite.
func latestOf(samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	v := samples[0]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func validCode(code string) bool {
	return code != "" && strings.TrimSpace(code) == code
}
