package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	dedupe "github.com/okian/pacechart/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When an update id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "update-1")

			Convey("Then it should report it as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same id arrives again", func() {
				again := d.SeenAndRecord(ctx, "update-1")

				Convey("Then it should report a duplicate", func() {
					So(again, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id is unrecorded after a rejected update", func() {
				d.Unrecord(ctx, "update-1")

				Convey("Then a retry should be accepted", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "update-1"), ShouldBeFalse)
				})
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing should change", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper holding three ids", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"u1", "u2", "u3"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth id is recorded", func() {
			So(d.SeenAndRecord(ctx, "u4"), ShouldBeFalse)

			Convey("Then the oldest id should be evicted and the rest kept", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "u4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u1"), ShouldBeFalse)
			})
		})

		Convey("When the newest id is unrecorded before the list fills again", func() {
			d.Unrecord(ctx, "u3")
			So(d.SeenAndRecord(ctx, "u5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "u6"), ShouldBeFalse)

			Convey("Then eviction should still drop the oldest", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "u2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u6"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u1"), ShouldBeFalse)
			})
		})

		Convey("When the oldest id is unrecorded", func() {
			d.Unrecord(ctx, "u1")
			So(d.SeenAndRecord(ctx, "u4"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "u5"), ShouldBeFalse)

			Convey("Then the tail should move to the next oldest", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "u3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u2"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper of size one", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))
		So(d.SeenAndRecord(ctx, "u1"), ShouldBeFalse)
		So(d.SeenAndRecord(ctx, "u2"), ShouldBeFalse)

		Convey("Then only the latest id should be remembered", func() {
			So(d.Size(), ShouldEqual, 1)
			So(d.SeenAndRecord(ctx, "u2"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When many ids are recorded", func() {
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("u%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing should be evicted", func() {
				So(d.Size(), ShouldEqual, n)
				So(d.SeenAndRecord(ctx, "u0"), ShouldBeTrue)
				d.Unrecord(ctx, "u0")
				So(d.Size(), ShouldEqual, n-1)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by several writers", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const writers = 10
		const perWriter = 100

		ids := make([][]string, writers)
		for w := range ids {
			ids[w] = make([]string, perWriter)
			for i := range ids[w] {
				ids[w][i] = uuid.NewString()
			}
		}

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for _, id := range ids[w] {
					d.SeenAndRecord(context.Background(), id)
				}
			}(w)
		}
		wg.Wait()

		Convey("Then every id should be recorded once", func() {
			So(d.Size(), ShouldEqual, writers*perWriter)
		})

		Convey("When the ids are unrecorded concurrently", func() {
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for _, id := range ids[w] {
						d.Unrecord(context.Background(), id)
					}
				}(w)
			}
			wg.Wait()

			Convey("Then the deduper should be empty", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}
