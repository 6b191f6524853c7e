package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pacechart/internal/adapters/repository"
	service "github.com/okian/pacechart/internal/app"
	"github.com/okian/pacechart/internal/domain/model"
)

// maxBodyBytes caps request bodies that carry series data.
const maxBodyBytes = 8 << 20

// SeriesDependencies defines the dataset operations.
type SeriesDependencies interface {
	Snapshot(ctx context.Context) (repository.Snapshot, error)
	ReplaceSeries(ctx context.Context, raw *model.RawSeriesMap) (uint64, error)
	ApplyUpdate(ctx context.Context, u model.SeriesUpdate) (service.UpdateResult, error)
}

// SeriesHandler serves the dataset.
type SeriesHandler struct {
	deps SeriesDependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps SeriesDependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

type replaceResponse struct {
	Version   uint64 `json:"version"`
	Countries int    `json:"countries"`
}

type updateResponse struct {
	Status    string `json:"status"`
	Version   uint64 `json:"version"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSeries handles GET and PUT /series.
func (h *SeriesHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.replace(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SeriesHandler) get(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_series"
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("ETag", `"`+formatVersion(snap.Version)+`"`)
	writeJSON(w, http.StatusOK, snap.Series)
}

func (h *SeriesHandler) replace(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_series"
	raw := model.NewRawSeriesMap()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(raw); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := h.deps.ReplaceSeries(r.Context(), raw)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, replaceResponse{Version: v, Countries: raw.Len()})
}

// HandlePostUpdate handles POST /series/updates.
func (h *SeriesHandler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_update"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.SeriesUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateUpdate(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.ApplyUpdate(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, updateResponse{Status: "duplicate", Version: res.Version, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, updateResponse{Status: "accepted", Version: res.Version})
}

func validateUpdate(u model.SeriesUpdate) error {
	switch {
	case strings.TrimSpace(u.UpdateID) == "":
		return errors.New("missing update_id")
	case strings.TrimSpace(u.Country) == "":
		return errors.New("missing country")
	}
	return nil
}
