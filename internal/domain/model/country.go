package model

// CountryMeta is the metadata resolved for a country code.
// Population is nil when the source does not know it.
type CountryMeta struct {
	Code       string   `json:"code" yaml:"code"`
	Name       string   `json:"name" yaml:"name"`
	Population *float64 `json:"population,omitempty" yaml:"population,omitempty"`
}

// HasPopulation reports whether a population figure is present.
func (c CountryMeta) HasPopulation() bool {
	return c.Population != nil
}
