package config

import (
	"errors"
)

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig marks a loaded configuration that fails Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a failure reading or decoding the file named by
	// PACECHART_CONFIG or the PACECHART_ environment overrides.
	ErrLoadConfig = errors.New("load config failed")
)
