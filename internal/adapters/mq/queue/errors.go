package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("session queue full")
	ErrClosed = errors.New("session queue closed")
)
