package api

import (
	"context"
	"net/http"
	"strconv"
)

// LeaderboardDependencies defines the interface for leader queries.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// LeaderboardHandler handles leader requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaders handles GET /leaders?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaders(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaders"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
