package model

// SeriesRecord is one country's samples after normalization.
// Samples run oldest to newest; Latest is the last sample and Peak the max.
type SeriesRecord struct {
	Country CountryMeta `json:"country"`
	Samples []float64   `json:"samples"`
	Peak    float64     `json:"peak"`
	Latest  float64     `json:"latest"`
	Length  int         `json:"length"`
}

// PlotPoint is one (country, step) pair fed to the nearest-point index.
// Series indexes the owning record; Alignment counts steps before "now".
type PlotPoint struct {
	Series    int     `json:"series"`
	Value     float64 `json:"value"`
	Alignment int     `json:"alignment"`
}

// Margin is the space around the plot area in pixels.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// LayoutConfig holds the dimensions chosen for one draw.
type LayoutConfig struct {
	ContainerWidth float64 `json:"container_width"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Margin         Margin  `json:"margin"`
	IsMobile       bool    `json:"is_mobile"`
	AspectRatio    float64 `json:"aspect_ratio"`
}

// OuterHeight is the full height of the render target including margins.
func (l LayoutConfig) OuterHeight() float64 {
	return l.Height + l.Margin.Top + l.Margin.Bottom
}

// Exclusion records why a country was left out of a draw.
type Exclusion struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
