// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/pacechart/internal/adapters/repository"
	service "github.com/okian/pacechart/internal/app"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SeriesDependencies
	ChartDependencies
	SessionDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the chart API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	seriesHandler      *SeriesHandler
	chartHandler       *ChartHandler
	sessionHandler     *SessionHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		seriesHandler:      NewSeriesHandler(deps),
		chartHandler:       NewChartHandler(deps),
		sessionHandler:     NewSessionHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/series", MetricsMiddleware(s.seriesHandler.HandleSeries, "series"))
	mux.HandleFunc("/series/updates", MetricsMiddleware(s.seriesHandler.HandlePostUpdate, "series_updates"))
	mux.HandleFunc("/chart.svg", MetricsMiddleware(s.chartHandler.HandleChartSVG, "chart"))
	mux.HandleFunc("/highlight", MetricsMiddleware(s.chartHandler.HandleHighlight, "highlight"))
	mux.HandleFunc("/leaders", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaders, "leaders"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	// The upgrade hijacks the connection, so the session route stays unwrapped.
	mux.HandleFunc("/ws", s.sessionHandler.HandleSession)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps upstream sentinel errors to a status and code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, plot.ErrConfiguration):
		return http.StatusBadRequest, "configuration"
	case errors.Is(err, service.ErrInvalidWidth),
		errors.Is(err, service.ErrInvalidUpdate),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, repository.ErrInvalidCode),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
