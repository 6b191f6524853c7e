package plot

import (
	"fmt"

	"github.com/okian/pacechart/internal/domain/layout"
)

// ErrConfiguration is returned, wrapped, for every draw aborted by bad
// options. It is the same value as layout.ErrConfiguration.
var ErrConfiguration = layout.ErrConfiguration

// ErrNegativeDimensions means the margins leave no room for the plot.
var ErrNegativeDimensions = fmt.Errorf("%w: negative plot dimensions", ErrConfiguration)
