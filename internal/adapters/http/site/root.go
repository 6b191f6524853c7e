// Package site handles the server root.
package site

import (
	"context"
	"net/http"
)

// Home is where the root path sends browsers.
const Home = "/dashboard"

// Register attaches the root route to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot redirects GET / to the chart client. Any other unmatched path
// is not found.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, Home, http.StatusFound)
}
