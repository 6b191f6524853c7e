package api

import (
	"net/http"
)

type dashboardHandler struct{}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard serves the embedded chart client. It opens /ws, forwards
// pointer and resize events and mirrors the draws it receives.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
