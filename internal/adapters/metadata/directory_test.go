package metadata_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pacechart/internal/adapters/metadata"
	"github.com/okian/pacechart/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

var _ normalize.Resolver = (*metadata.Directory)(nil)

func TestDefaultDirectory(t *testing.T) {
	Convey("Given the embedded directory", t, func() {
		d := metadata.Default()

		Convey("Then codes should resolve regardless of case", func() {
			il, ok := d.Resolve("il")
			So(ok, ShouldBeTrue)
			So(il.Code, ShouldEqual, "IL")
			So(il.Name, ShouldEqual, "Israel")
			So(il.HasPopulation(), ShouldBeTrue)
		})

		Convey("Then unknown codes should not resolve", func() {
			_, ok := d.Resolve("XX")
			So(ok, ShouldBeFalse)
		})

		Convey("Then entries without population should resolve without one", func() {
			gi, ok := d.Resolve("GI")
			So(ok, ShouldBeTrue)
			So(gi.HasPopulation(), ShouldBeFalse)
		})

		Convey("Then codes should be listed sorted", func() {
			codes := d.Codes()
			So(len(codes), ShouldEqual, d.Len())
			So(codes[0], ShouldEqual, "AE")
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given YAML documents", t, func() {
		Convey("When a code is repeated", func() {
			_, err := metadata.Parse([]byte("countries:\n  - {code: IL, name: Israel}\n  - {code: il, name: Again}\n"))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, metadata.ErrDuplicateCode), ShouldBeTrue)
			})
		})

		Convey("When a code is not alpha-2", func() {
			_, err := metadata.Parse([]byte("countries:\n  - {code: ISR, name: Israel}\n"))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, metadata.ErrInvalidDocument), ShouldBeTrue)
			})
		})

		Convey("When the document is malformed", func() {
			_, err := metadata.Parse([]byte("countries: {code: [\n"))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, metadata.ErrInvalidDocument), ShouldBeTrue)
			})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a countries file", t, func() {
		path := filepath.Join(t.TempDir(), "countries.yaml")
		So(os.WriteFile(path, []byte("countries:\n  - code: aa\n    name: Alpha\n    population: 2500000\n"), 0o600), ShouldBeNil)

		d, err := metadata.Load(path)

		Convey("Then only its countries should resolve", func() {
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 1)
			a, ok := d.Resolve("AA")
			So(ok, ShouldBeTrue)
			So(*a.Population, ShouldEqual, 2_500_000)
		})
	})

	Convey("Given no path", t, func() {
		d, err := metadata.Load("")

		Convey("Then the embedded directory should be returned", func() {
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, metadata.Default().Len())
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := metadata.Load(filepath.Join(t.TempDir(), "nope.yaml"))

		Convey("Then an error should be returned", func() {
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}
