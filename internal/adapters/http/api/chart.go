package api

import (
	"context"
	"net/http"

	service "github.com/okian/pacechart/internal/app"
	"github.com/okian/pacechart/internal/domain/highlight"
)

// ChartDependencies defines the draw operations.
type ChartDependencies interface {
	RenderSVG(ctx context.Context, width float64) ([]byte, error)
	Highlight(ctx context.Context, width float64, ptr highlight.Pointer) (service.HighlightResult, error)
}

// ChartHandler serves rendered charts and stateless highlight queries.
type ChartHandler struct {
	deps ChartDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ChartDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleChartSVG handles GET /chart.svg?width=W.
func (h *ChartHandler) HandleChartSVG(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_chart"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	width, err := widthParam(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	b, err := h.deps.RenderSVG(r.Context(), width)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// HandleHighlight handles GET /highlight?width=W&x=X&y=Y&kind=move|drag|leave.
func (h *ChartHandler) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_highlight"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	width, err := widthParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	ptr := highlight.Pointer{Kind: highlight.PointerKind(q.Get("kind"))}
	switch ptr.Kind {
	case "":
		ptr.Kind = highlight.PointerMove
	case highlight.PointerMove, highlight.PointerDrag, highlight.PointerLeave:
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if ptr.X, err = floatParam(q, "x", 0); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if ptr.Y, err = floatParam(q, "y", 0); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	res, err := h.deps.Highlight(r.Context(), width, ptr)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
