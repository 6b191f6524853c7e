package replay

import "time"

// Config holds the settings of one replay run.
type Config struct {
	BaseURL    string        // Base URL of the chart server
	Countries  int           // Number of countries in the generated dataset
	Days       int           // Samples per country
	Updates    int           // Series updates to post, each sent twice
	Width      float64       // Draw width used for the sweep
	Step       float64       // Pointer grid spacing in pixels
	LeaveEvery int           // Check a pointer leave after every Nth sweep point
	TopN       int           // Leaders to fetch
	Workers    int           // Concurrent sweep workers
	Seed       uint64        // Dataset seed; the same seed gives the same dataset
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Where to write the dataset; empty skips it
	Verbose    bool          // Log every failed check
}

// Entry is a leaders/rank entry as served by the API.
type Entry struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Name    string  `json:"name"`
	Latest  float64 `json:"latest"`
}

// Tooltip mirrors the served tooltip.
type Tooltip struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Text   string  `json:"text"`
	Pinned bool    `json:"pinned"`
}

// State mirrors the served highlight state.
type State struct {
	PlotID        string   `json:"plot_id"`
	Phase         string   `json:"phase"`
	ActiveCountry string   `json:"active_country"`
	Tooltip       *Tooltip `json:"tooltip"`
}

// HighlightResult mirrors GET /highlight.
type HighlightResult struct {
	PlotID  string `json:"plot_id"`
	Version uint64 `json:"version"`
	Default State  `json:"default"`
	State   State  `json:"state"`
	Changed bool   `json:"changed"`
}

// UpdateAck mirrors POST /series/updates.
type UpdateAck struct {
	Status    string `json:"status"`
	Version   uint64 `json:"version"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Countries        int
	UpdatesAccepted  int
	UpdatesDuplicate int
	UpdatesFailed    int
	Queries          int
	Changed          int
	Violations       int
	Failed           int
	LeadersEntries   int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
