// Package metadata is the country directory: it resolves ISO alpha-2 codes to
// names and populations from a YAML document.
package metadata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/pacechart/internal/domain/model"
)

//go:embed countries.yaml
var defaultCountries []byte

// Sentinel errors.
var (
	ErrInvalidDocument = errors.New("invalid country document")
	ErrDuplicateCode   = errors.New("duplicate country code")
)

type document struct {
	Countries []model.CountryMeta `yaml:"countries"`
}

// Directory is an immutable code -> metadata lookup. It satisfies
// normalize.Resolver and is safe for concurrent use.
type Directory struct {
	byCode map[string]model.CountryMeta
}

// Default returns the embedded directory.
func Default() *Directory {
	d, err := Parse(defaultCountries)
	if err != nil {
		panic(fmt.Sprintf("metadata: embedded countries: %v", err))
	}
	return d
}

// Load reads a directory from a YAML file. An empty path returns Default().
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read countries %s: %w", path, err)
	}
	d, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML document of the form
//
//	countries:
//	  - {code: IL, name: Israel, population: 9216000}
//
// Codes are stored upper-case; population may be omitted.
func Parse(b []byte) (*Directory, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	d := &Directory{byCode: make(map[string]model.CountryMeta, len(doc.Countries))}
	for i, c := range doc.Countries {
		code := normalizeCode(c.Code)
		if len(code) != 2 {
			return nil, fmt.Errorf("%w: entry %d has code %q", ErrInvalidDocument, i, c.Code)
		}
		if _, dup := d.byCode[code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		if c.Population != nil && *c.Population < 0 {
			return nil, fmt.Errorf("%w: %s has negative population", ErrInvalidDocument, code)
		}
		c.Code = code
		d.byCode[code] = c
	}
	return d, nil
}

// Resolve looks up code, ignoring case.
func (d *Directory) Resolve(code string) (model.CountryMeta, bool) {
	c, ok := d.byCode[normalizeCode(code)]
	return c, ok
}

// Len is the number of known countries.
func (d *Directory) Len() int {
	return len(d.byCode)
}

// Codes returns every known code, sorted.
func (d *Directory) Codes() []string {
	out := make([]string, 0, len(d.byCode))
	for c := range d.byCode {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
