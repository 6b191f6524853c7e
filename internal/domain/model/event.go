// Package model contains domain models passed between layers.
package model

import "time"

// EventKind names what a session event asks the chart to do.
type EventKind string

const (
	EventPointerMove  EventKind = "pointer_move"
	EventPointerDrag  EventKind = "pointer_drag"
	EventPointerLeave EventKind = "pointer_leave"
	EventResize       EventKind = "resize"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventPointerMove, EventPointerDrag, EventPointerLeave, EventResize:
		return true
	}
	return false
}

// SessionEvent is one client interaction flowing through a session queue.
// X and Y are render-target-local pixels; Width is only read for resize.
type SessionEvent struct {
	Kind  EventKind `json:"kind"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Width float64   `json:"width,omitempty"`
	Seq   uint64    `json:"seq,omitempty"`
	TS    time.Time `json:"-"`
}

// SeriesUpdate replaces one country's samples. UpdateID makes it idempotent.
type SeriesUpdate struct {
	UpdateID string    `json:"update_id"`
	Country  string    `json:"country"`
	Samples  []float64 `json:"samples"`
}
