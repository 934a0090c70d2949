package fixture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/adapters/remote/fixture"
	"github.com/okian/hntally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given a store seeded with items", t, func() {
		ctx := context.Background()
		boom := errors.New("connection reset")
		s := fixture.New(
			fixture.WithTop(1, 2, 3),
			fixture.WithItems(
				model.Item{ID: 1, Kind: model.KindStory, Title: "A", Kids: []model.ItemID{10}},
				model.Item{ID: 10, Kind: model.KindComment, Author: "user-a"},
			),
			fixture.WithFailure(2, boom),
		)

		Convey("When listing fewer ids than available", func() {
			ids, err := s.ListTop(ctx, 2)

			Convey("Then the list is truncated in order", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []model.ItemID{1, 2})
			})
		})

		Convey("When listing more ids than available", func() {
			ids, err := s.ListTop(ctx, 30)

			Convey("Then the whole list is returned", func() {
				So(err, ShouldBeNil)
				So(len(ids), ShouldEqual, 3)
			})
		})

		Convey("When fetching a known item", func() {
			item, err := s.GetItem(ctx, 1)

			Convey("Then a copy of the item is returned", func() {
				So(err, ShouldBeNil)
				So(item.Title, ShouldEqual, "A")
				item.Kids[0] = 99
				again, _ := s.GetItem(ctx, 1)
				So(again.Kids[0], ShouldEqual, 10)
				So(s.Fetches(1), ShouldEqual, 2)
			})
		})

		Convey("When fetching a missing item", func() {
			_, err := s.GetItem(ctx, 404)

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, remote.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When fetching an item with an injected failure", func() {
			_, err := s.GetItem(ctx, 2)

			Convey("Then that failure is returned", func() {
				So(err, ShouldEqual, boom)
				So(s.Calls(), ShouldEqual, 1)
			})
		})
	})
}

func TestStoreLatency(t *testing.T) {
	Convey("Given a store with simulated latency", t, func() {
		s := fixture.New(
			fixture.WithItems(model.Item{ID: 1, Kind: model.KindComment, Author: "a"}),
			fixture.WithLatencyRange(20*time.Millisecond, 30*time.Millisecond),
		)

		Convey("When several callers fetch at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.GetItem(context.Background(), 1)
				}()
			}
			wg.Wait()

			Convey("Then the peak in-flight count is observed", func() {
				So(s.PeakInFlight(), ShouldBeGreaterThan, 1)
				So(s.PeakInFlight(), ShouldBeLessThanOrEqualTo, 4)
				So(s.Calls(), ShouldEqual, 4)
			})
		})

		Convey("When the context is cancelled mid-call", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.GetItem(ctx, 1)

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestWithThreads(t *testing.T) {
	Convey("Given a thread with five comments", t, func() {
		s := fixture.New(fixture.WithThreads(fixture.Thread{
			ID: 7, Title: "T", Authors: []string{"a", "b", "c", "d", "e"},
		}))
		ctx := context.Background()

		Convey("Then the story holds the even-indexed comments", func() {
			story, err := s.GetItem(ctx, 7)
			So(err, ShouldBeNil)
			So(story.Kids, ShouldResemble, []model.ItemID{7001, 7003, 7005})

			first, err := s.GetItem(ctx, 7001)
			So(err, ShouldBeNil)
			So(first.Author, ShouldEqual, "a")
			So(first.Kids, ShouldResemble, []model.ItemID{7002})

			ids, _ := s.ListTop(ctx, 10)
			So(ids, ShouldResemble, []model.ItemID{7})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a YAML fixture file", t, func() {
		ctx := context.Background()

		Convey("When loading the sample", func() {
			s, err := fixture.Load(ctx, filepath.Join("testdata", "sample.yaml"))
			So(err, ShouldBeNil)

			Convey("Then top ids and items are available", func() {
				ids, err := s.ListTop(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []model.ItemID{1, 2, 3, 4})

				job, err := s.GetItem(ctx, 31)
				So(err, ShouldBeNil)
				So(job.Kind, ShouldEqual, model.KindOther)
				So(job.Kids, ShouldResemble, []model.ItemID{311})

				deleted, err := s.GetItem(ctx, 32)
				So(err, ShouldBeNil)
				So(deleted.Deleted, ShouldBeTrue)
				So(deleted.Author, ShouldEqual, "")

				_, err = s.GetItem(ctx, 4)
				So(errors.Is(err, remote.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := fixture.Load(ctx, "/non/existent/fixture.yaml")

			Convey("Then ErrInvalidFixture is returned", func() {
				So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
			})
		})

		Convey("When an item has no id", func() {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			So(os.WriteFile(path, []byte("top: [1]\nitems:\n  - {type: story}\n"), 0o600), ShouldBeNil)
			_, err := fixture.Load(ctx, path)

			Convey("Then ErrInvalidFixture is returned", func() {
				So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
			})
		})
	})
}
