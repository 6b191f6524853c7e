package layout

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the root of every error that aborts a draw because of
// bad chart options rather than bad data.
var ErrConfiguration = errors.New("chart configuration error")

// Sentinel errors for this package; all wrap ErrConfiguration.
var (
	ErrNoAspectMatch    = fmt.Errorf("%w: no aspect ratio entry matches the container width", ErrConfiguration)
	ErrInvalidAspects   = fmt.Errorf("%w: invalid aspect ratio table", ErrConfiguration)
	ErrInvalidContainer = fmt.Errorf("%w: invalid container width", ErrConfiguration)
)
