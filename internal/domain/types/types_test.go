package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/pacechart/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		Convey("When encoding an entry without a name", func() {
			out, err := json.Marshal(types.Entry{Rank: 1, Country: "IL", Latest: 1234.5})

			Convey("Then the name should be omitted", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `{"rank":1,"country":"IL","latest":1234.5}`)
			})
		})

		Convey("When encoding an entry with a name", func() {
			out, err := json.Marshal(types.Entry{Rank: 2, Country: "CL", Name: "Chile", Latest: 10})

			Convey("Then all fields should be present", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldContainSubstring, `"name":"Chile"`)
			})
		})
	})
}
