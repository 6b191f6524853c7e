package scale

import "github.com/okian/pacechart/internal/domain/model"

// MaxAlpha caps the opacity of the faintest-to-brightest series gradient.
const MaxAlpha = 0.6

// Set groups the three scales of one draw.
type Set struct {
	// X maps steps to pixels: [0, maxLength] niced onto [0, width].
	X Linear `json:"x"`
	// Y maps values to pixels: [0, maxPeak] niced onto [height, 0].
	Y Linear `json:"y"`
	// Alpha maps latest values to opacity: [0, maxLatest] onto [0, MaxAlpha].
	Alpha Linear `json:"alpha"`
}

// Build derives the scales from the normalized records and the layout.
func Build(records []model.SeriesRecord, l model.LayoutConfig) Set {
	var maxLength, maxPeak, maxLatest float64
	for i, r := range records {
		if i == 0 || float64(r.Length) > maxLength {
			maxLength = float64(r.Length)
		}
		if i == 0 || r.Peak > maxPeak {
			maxPeak = r.Peak
		}
		if i == 0 || r.Latest > maxLatest {
			maxLatest = r.Latest
		}
	}

	return Set{
		X:     NewLinear(0, maxLength, 0, l.Width).Nice(DefaultTickCount),
		Y:     NewLinear(0, maxPeak, l.Height, 0).Nice(DefaultTickCount),
		Alpha: NewLinear(0, maxLatest, 0, MaxAlpha),
	}
}

// XFor returns the horizontal pixel of a point alignment steps before "now".
// The most recent sample (alignment 0) always sits on the X domain maximum.
func (s Set) XFor(alignment int) float64 {
	_, hi := s.X.Domain()
	return s.X.Apply(hi - float64(alignment))
}
