// Package types contains common types used across the application
package types

// Entry is one row of the leaders table: countries ranked by their most
// recent raw sample.
type Entry struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Name    string  `json:"name,omitempty"`
	Latest  float64 `json:"latest"`
}
