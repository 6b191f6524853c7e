// Package service is the composition root: it owns the series store, the
// deduper, the country directory and the live sessions, and implements the
// dependencies of the HTTP API.
package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/pacechart/internal/adapters/metadata"
	repository "github.com/okian/pacechart/internal/adapters/repository"
	"github.com/okian/pacechart/internal/domain/chart"
	"github.com/okian/pacechart/internal/domain/dedupe"
	"github.com/okian/pacechart/internal/domain/highlight"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/normalize"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/domain/types"
	"github.com/okian/pacechart/internal/render/svg"
	"github.com/okian/pacechart/pkg/logger"
	"github.com/okian/pacechart/pkg/metrics"
)

// Service implements the API dependencies of the chart server.
type Service struct {
	mu sync.RWMutex

	store    *repository.TreapStore
	deduper  dedupe.Deduper
	resolver normalize.Resolver

	chartOpts           plot.Options
	sessionQueueSize    int
	sessionDrainTimeout time.Duration
	dedupeSize          int
	seed                *model.RawSeriesMap

	sessions map[string]*Session

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSessionQueueSize bounds the event queue of each session.
func WithSessionQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.sessionQueueSize = size
		}
	}
}

// WithSessionDrainTimeout bounds how long Session.Close waits for queued
// events before stopping the session worker.
func WithSessionDrainTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionDrainTimeout = d
		}
	}
}

// WithDedupeSize sets the size of the update-id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChartOptions sets the draw options.
func WithChartOptions(opts plot.Options) Option {
	return func(s *Service) {
		s.chartOpts = opts
	}
}

// WithResolver replaces the embedded country directory.
func WithResolver(r normalize.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithSeries seeds the store when the service starts.
func WithSeries(raw *model.RawSeriesMap) Option {
	return func(s *Service) {
		s.seed = raw
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		chartOpts:           plot.DefaultOptions(),
		sessionQueueSize:    256,
		sessionDrainTimeout: 5 * time.Second,
		dedupeSize:          100_000,
		sessions:            make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.resolver == nil {
		s.resolver = metadata.Default()
	}

	s.logger.Info(ctx, "starting chart service...")

	storeOpts := []repository.Option{}
	if s.seed != nil {
		storeOpts = append(storeOpts, repository.WithSeed(s.seed))
	}
	store, err := repository.NewTreapStore(ctx, storeOpts...)
	if err != nil {
		return fmt.Errorf("seed series: %w", err)
	}
	s.store = store
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.started = true
	snap := s.store.Snapshot()
	s.logger.Info(ctx, "chart service started",
		logger.Int("countries", snap.Series.Len()),
		logger.Uint64("version", snap.Version),
		logger.Int("sessionQueueSize", s.sessionQueueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes every session and shuts the store down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping chart service...", logger.Int("sessions", len(sessions)))
	for _, sess := range sessions {
		sess.Close()
	}
	_ = s.store.Close()
	s.logger.Info(ctx, "chart service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Snapshot returns the current dataset.
func (s *Service) Snapshot(_ context.Context) (repository.Snapshot, error) {
	if !s.running() {
		return repository.Snapshot{}, ErrNotStarted
	}
	return s.store.Snapshot(), nil
}

// ReplaceSeries swaps the dataset.
func (s *Service) ReplaceSeries(ctx context.Context, raw *model.RawSeriesMap) (uint64, error) {
	if !s.running() {
		return 0, ErrNotStarted
	}
	v, err := s.store.Replace(ctx, raw)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "series replaced", logger.Int("countries", raw.Len()), logger.Uint64("version", v))
	return v, nil
}

// UpdateResult reports the outcome of ApplyUpdate.
type UpdateResult struct {
	Version   uint64 `json:"version"`
	Duplicate bool   `json:"duplicate"`
}

// ApplyUpdate upserts one country's samples at most once per UpdateID.
func (s *Service) ApplyUpdate(ctx context.Context, u model.SeriesUpdate) (UpdateResult, error) {
	if !s.running() {
		return UpdateResult{}, ErrNotStarted
	}
	if u.UpdateID == "" || u.Country == "" {
		return UpdateResult{}, fmt.Errorf("%w: update_id and country are required", ErrInvalidUpdate)
	}

	if s.deduper.SeenAndRecord(ctx, u.UpdateID) {
		metrics.RecordSeriesUpdateDuplicate()
		s.logger.Debug(ctx, "duplicate series update", logger.String("updateID", u.UpdateID))
		return UpdateResult{Version: s.store.Snapshot().Version, Duplicate: true}, nil
	}

	v, err := s.store.Upsert(ctx, u.Country, u.Samples)
	if err != nil {
		s.deduper.Unrecord(ctx, u.UpdateID)
		return UpdateResult{}, err
	}
	metrics.RecordSeriesUpdate()
	return UpdateResult{Version: v}, nil
}

// Draw renders the current dataset into a fresh canvas of the given width.
func (s *Service) Draw(ctx context.Context, width float64) (chart.RenderedState, *svg.Canvas, uint64, error) {
	if !s.running() {
		return chart.RenderedState{}, nil, 0, ErrNotStarted
	}
	if err := checkWidth(width); err != nil {
		return chart.RenderedState{}, nil, 0, err
	}
	snap := s.store.Snapshot()
	canvas := svg.NewCanvas(width)
	rs, err := s.render(ctx, snap.Series, canvas)
	if err != nil {
		return chart.RenderedState{}, nil, 0, err
	}
	return rs, canvas, snap.Version, nil
}

// RenderSVG returns one draw encoded as an SVG document.
func (s *Service) RenderSVG(ctx context.Context, width float64) ([]byte, error) {
	_, canvas, _, err := s.Draw(ctx, width)
	if err != nil {
		return nil, err
	}
	return canvas.Bytes()
}

// HighlightResult is the outcome of a stateless highlight query.
type HighlightResult struct {
	PlotID   string              `json:"plot_id"`
	Version  uint64              `json:"version"`
	Default  highlight.State     `json:"default"`
	State    highlight.State     `json:"state"`
	Commands []highlight.Command `json:"commands"`
	Changed  bool                `json:"changed"`
}

// Highlight draws at width, applies the default highlight and then ptr.
func (s *Service) Highlight(ctx context.Context, width float64, ptr highlight.Pointer) (HighlightResult, error) {
	rs, _, version, err := s.Draw(ctx, width)
	if err != nil {
		return HighlightResult{}, err
	}

	began := time.Now()
	next, cmds := rs.Pointer(ptr)
	metrics.RecordNearestQuery(float64(time.Since(began).Microseconds()) / 1000)
	metrics.RecordPointerEvent(string(ptr.Kind))

	changed := highlight.Changed(rs.Highlight, next.Highlight)
	if changed {
		metrics.RecordHighlightChange()
	}
	if cmds == nil {
		cmds = []highlight.Command{}
	}
	return HighlightResult{
		PlotID:   rs.Plot.ID,
		Version:  version,
		Default:  rs.Highlight,
		State:    next.Highlight,
		Commands: cmds,
		Changed:  changed,
	}, nil
}

// render runs one draw and records its metrics.
func (s *Service) render(ctx context.Context, raw *model.RawSeriesMap, target chart.Target) (chart.RenderedState, error) {
	began := time.Now()
	rs, err := chart.Render(raw, s.resolver, s.chartOpts, target)
	ms := float64(time.Since(began).Microseconds()) / 1000
	if err != nil {
		metrics.RecordDraw("error", ms)
		metrics.RecordErrorByComponent("chart", "configuration")
		s.logger.Warn(ctx, "draw aborted", logger.Float64("width", target.Width()), logger.Error(err))
		return chart.RenderedState{}, err
	}

	p := rs.Plot
	metrics.RecordDraw("ok", ms)
	metrics.UpdateSeriesPlotted(len(p.Records))
	metrics.RecordIndexBuild(p.IndexPoints(), float64(p.IndexBuildTime.Microseconds())/1000, p.Index.Linear())
	for _, ex := range p.Excluded {
		metrics.RecordSeriesExcluded(ex.Reason)
		s.logger.Debug(ctx, "country excluded", logger.String("country", ex.Code), logger.String("reason", ex.Reason))
	}
	return rs, nil
}

// TopN returns the top N countries by latest value, with names.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Name = s.nameOf(entries[i].Country)
	}
	return entries, nil
}

// Rank returns the rank and latest value of a country.
func (s *Service) Rank(ctx context.Context, code string) (types.Entry, error) {
	if !s.running() {
		return types.Entry{}, ErrNotStarted
	}
	e, err := s.store.Rank(ctx, code)
	if err != nil {
		return types.Entry{}, err
	}
	e.Name = s.nameOf(code)
	return e, nil
}

func (s *Service) nameOf(code string) string {
	if meta, ok := s.resolver.Resolve(code); ok {
		return meta.Name
	}
	return ""
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":          s.started,
		"sessionQueueSize": s.sessionQueueSize,
		"dedupeSize":       s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queued, capacity := 0, 0
	for _, sess := range s.sessions {
		queued += sess.queue.Len()
		capacity += sess.queue.Capacity()
	}
	snap := s.store.Snapshot()
	ranked := s.store.Count(context.Background())

	stats["sessions"] = len(s.sessions)
	stats["queueLength"] = queued
	stats["countries"] = snap.Series.Len()
	stats["rankedCountries"] = ranked
	stats["version"] = snap.Version
	stats["updatedAt"] = snap.UpdatedAt
	stats["dedupeEntries"] = s.deduper.Size()

	metrics.UpdateQueueSize(queued)
	metrics.UpdateQueueCapacity(capacity)
	if capacity > 0 {
		metrics.UpdateQueueUtilization(float64(queued) / float64(capacity))
	} else {
		metrics.UpdateQueueUtilization(0)
	}
	metrics.UpdateTrackedCountries(ranked)
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func checkWidth(width float64) error {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidWidth, width)
	}
	return nil
}
