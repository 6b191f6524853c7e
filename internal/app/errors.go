package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidUpdate = errors.New("invalid series update")
	ErrInvalidWidth  = errors.New("invalid container width")
	ErrInvalidEvent  = errors.New("invalid session event")
	ErrSessionClosed = errors.New("session closed")
	ErrBackpressure  = errors.New("session queue full")
)
