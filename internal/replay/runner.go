// Package replay drives a running chart server end to end: it uploads a
// generated dataset, replays idempotent updates and sweeps pointer positions
// over the stateless highlight endpoint, checking every answer.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	// sweepHeightRatio bounds the sweep below the widest aspect ratio.
	sweepHeightRatio = 0.8
)

// ErrVerification is returned when any check failed.
var ErrVerification = errors.New("replay verification failed")

// Run executes a complete replay against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("replay")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout)

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("countries", cfg.Countries),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.Uint64("seed", cfg.Seed))

	if _, err := client.get(ctx, "/healthz"); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	raw := GenerateDataset(cfg.Seed, cfg.Countries, cfg.Days)
	stats.Countries = raw.Len()
	var put struct {
		Version uint64 `json:"version"`
	}
	if _, err := client.do(ctx, http.MethodPut, "/series", raw, &put); err != nil {
		return stats, fmt.Errorf("dataset upload failed: %w", err)
	}
	log.Info(ctx, "dataset uploaded", logger.Int("countries", raw.Len()), logger.Uint64("version", put.Version))

	updates := GenerateUpdates(cfg.Seed, raw, cfg.Updates)
	postUpdates(ctx, client, updates, stats)
	for _, u := range updates {
		raw.Set(u.Country, u.Samples)
	}

	svg, err := client.get(ctx, "/chart.svg?width="+formatFloat(cfg.Width))
	if err != nil {
		return stats, fmt.Errorf("chart fetch failed: %w", err)
	}
	if !strings.HasPrefix(string(svg), "<svg") {
		return stats, fmt.Errorf("%w: chart is not an SVG document", ErrVerification)
	}

	sweep(ctx, cfg, client, known(raw), stats)

	var leaders []Entry
	if _, err := client.do(ctx, http.MethodGet, "/leaders?limit="+strconv.Itoa(cfg.TopN), nil, &leaders); err != nil {
		return stats, fmt.Errorf("leaders fetch failed: %w", err)
	}
	stats.LeadersEntries = len(leaders)
	if err := verifyLeaders(leaders); err != nil {
		stats.Violations++
		log.Warn(ctx, "leaders check failed", logger.Error(err))
	}
	displayLeaders(ctx, leaders)

	if cfg.OutputFile != "" {
		if err := saveDataset(cfg.OutputFile, raw); err != nil {
			log.Warn(ctx, "failed to save dataset", logger.Error(err))
		} else {
			log.Info(ctx, "dataset saved", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Violations > 0 || stats.Failed > 0 || stats.UpdatesFailed > 0 {
		return stats, fmt.Errorf("%w: %d violations, %d failed queries, %d failed updates",
			ErrVerification, stats.Violations, stats.Failed, stats.UpdatesFailed)
	}
	log.Info(ctx, "replay completed successfully")
	return stats, nil
}

// postUpdates sends every update twice; the second must be a duplicate.
func postUpdates(ctx context.Context, client *HTTPClient, updates []model.SeriesUpdate, stats *Stats) {
	log := logger.Named("replay")
	for _, u := range updates {
		var first, second UpdateAck
		if _, err := client.do(ctx, http.MethodPost, "/series/updates", u, &first); err != nil {
			stats.UpdatesFailed++
			log.Warn(ctx, "update failed", logger.String("updateID", u.UpdateID), logger.Error(err))
			continue
		}
		stats.UpdatesAccepted++
		if _, err := client.do(ctx, http.MethodPost, "/series/updates", u, &second); err != nil {
			stats.UpdatesFailed++
			continue
		}
		if !second.Duplicate || second.Version != first.Version {
			stats.Violations++
			log.Warn(ctx, "replayed update was applied again", logger.String("updateID", u.UpdateID))
			continue
		}
		stats.UpdatesDuplicate++
	}
}

type point struct{ x, y float64 }

// sweep queries a grid of pointer positions with a worker pool.
func sweep(ctx context.Context, cfg *Config, client *HTTPClient, codes map[string]bool, stats *Stats) {
	log := logger.Named("replay")
	var points []point
	for y := 0.0; y <= cfg.Width*sweepHeightRatio; y += cfg.Step {
		for x := 0.0; x <= cfg.Width; x += cfg.Step {
			points = append(points, point{x, y})
		}
	}
	log.Info(ctx, "sweeping pointer positions", logger.Int("points", len(points)), logger.Int("workers", cfg.Workers))

	var queries, changed, violations, failed atomic.Int64
	ch := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range ch {
				p := points[idx]
				checkLeave := cfg.LeaveEvery > 0 && idx%cfg.LeaveEvery == 0
				n, err := checkPoint(ctx, cfg, client, codes, p, checkLeave)
				queries.Add(int64(n))
				switch {
				case errors.Is(err, ErrVerification):
					violations.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "check failed", logger.Float64("x", p.x), logger.Float64("y", p.y), logger.Error(err))
					}
				case errors.Is(err, errChanged):
					changed.Add(1)
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "query failed", logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for i := range points {
			select {
			case <-ctx.Done():
				return
			case ch <- i:
			}
		}
	}()
	wg.Wait()

	stats.Queries = int(queries.Load())
	stats.Changed = int(changed.Load())
	stats.Violations += int(violations.Load())
	stats.Failed = int(failed.Load())
}

// errChanged marks a sweep point that moved the highlight; it is not a failure.
var errChanged = errors.New("highlight changed")

func highlightPath(width float64, kind string, p point) string {
	q := url.Values{}
	q.Set("width", formatFloat(width))
	q.Set("kind", kind)
	q.Set("x", formatFloat(p.x))
	q.Set("y", formatFloat(p.y))
	return "/highlight?" + q.Encode()
}

// checkPoint queries p, repeats the query, and optionally checks a leave. It
// returns the number of requests sent.
func checkPoint(ctx context.Context, cfg *Config, client *HTTPClient, codes map[string]bool, p point, leave bool) (int, error) {
	var first, again HighlightResult
	if _, err := client.do(ctx, http.MethodGet, highlightPath(cfg.Width, "move", p), nil, &first); err != nil {
		return 1, err
	}
	if _, err := client.do(ctx, http.MethodGet, highlightPath(cfg.Width, "move", p), nil, &again); err != nil {
		return 2, err
	}
	if err := verifyHighlight(first, again, codes); err != nil {
		return 2, err
	}
	n := 2
	if leave {
		var left HighlightResult
		n++
		if _, err := client.do(ctx, http.MethodGet, highlightPath(cfg.Width, "leave", p), nil, &left); err != nil {
			return n, err
		}
		if err := verifyLeave(left); err != nil {
			return n, err
		}
	}
	if first.Changed {
		return n, errChanged
	}
	return n, nil
}

func known(raw *model.RawSeriesMap) map[string]bool {
	out := make(map[string]bool, raw.Len())
	for _, c := range raw.Codes() {
		out[c] = true
	}
	return out
}

func saveDataset(filename string, raw *model.RawSeriesMap) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	return os.WriteFile(filename, b, filePermission)
}

func displayLeaders(ctx context.Context, leaders []Entry) {
	log := logger.Named("replay")
	for _, e := range leaders {
		log.Debug(ctx, "leader",
			logger.Int("rank", e.Rank),
			logger.String("country", e.Country),
			logger.String("name", e.Name),
			logger.String("latest", humanize.Commaf(e.Latest)))
	}
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var qps float64
	if stats.Duration > 0 {
		qps = float64(stats.Queries) / stats.Duration.Seconds()
	}
	logger.Named("replay").Info(ctx, "final statistics",
		logger.Int("countries", stats.Countries),
		logger.Int("updatesAccepted", stats.UpdatesAccepted),
		logger.Int("updatesDuplicate", stats.UpdatesDuplicate),
		logger.Int("updatesFailed", stats.UpdatesFailed),
		logger.String("queries", humanize.Comma(int64(stats.Queries))),
		logger.Int("changed", stats.Changed),
		logger.Int("violations", stats.Violations),
		logger.Int("failed", stats.Failed),
		logger.Int("leaders", stats.LeadersEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("queriesPerSecond", qps))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
