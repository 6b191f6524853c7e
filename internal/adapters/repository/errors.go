package repository

import "errors"

// Sentinel kinds for series store errors.
var (
	ErrNotFound     = errors.New("country not found")
	ErrInvalidLimit = errors.New("invalid leaders limit")
	ErrInvalidCode  = errors.New("invalid country code")
)
