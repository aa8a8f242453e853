package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorecard/internal/adapters/kvstore"
	"github.com/okian/scorecard/internal/domain/cache"
	"github.com/okian/scorecard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// countingSource is a Scanner that counts how many times it was scanned.
type countingSource struct {
	mu    sync.Mutex
	items []kvstore.Item
	scans int
	err   error
}

func (s *countingSource) Scan(_ context.Context) ([]kvstore.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *countingSource) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

func flagItem(name string, weight float64) kvstore.Item {
	return kvstore.Item{model.AttrFlag: name, model.AttrWeight: weight}
}

func TestFlagCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a flag cache over a counting source", t, func() {
		now := time.Unix(1700000000, 0)
		clock := func() time.Time { return now }
		source := &countingSource{items: []kvstore.Item{
			flagItem("alpha", 10),
			flagItem("bravo", 20),
		}}
		c := cache.NewFlagCache(source, cache.WithFlagTTL(30), cache.WithFlagNow(clock))

		Convey("The first read scans the source", func() {
			flags, err := c.Current(ctx, nil)
			So(err, ShouldBeNil)
			So(flags, ShouldHaveLength, 2)
			So(flags[0].Flag, ShouldEqual, "alpha")
			So(source.scanCount(), ShouldEqual, 1)

			Convey("Reads inside the lifetime reuse the snapshot", func() {
				now = now.Add(29 * time.Second)
				again, err := c.Current(ctx, nil)
				So(err, ShouldBeNil)
				So(again, ShouldHaveLength, 2)
				So(source.scanCount(), ShouldEqual, 1)
			})

			Convey("A read past the lifetime refreshes", func() {
				source.items = append(source.items, flagItem("charlie", 30))
				now = now.Add(31 * time.Second)
				again, err := c.Current(ctx, nil)
				So(err, ShouldBeNil)
				So(again, ShouldHaveLength, 3)
				So(source.scanCount(), ShouldEqual, 2)
				So(c.RefreshedAt(), ShouldEqual, now)
			})

			Convey("A request may overwrite the lifetime", func() {
				ttl := 5.0
				now = now.Add(6 * time.Second)
				_, err := c.Current(ctx, &ttl)
				So(err, ShouldBeNil)
				So(source.scanCount(), ShouldEqual, 2)
				So(c.TTL(), ShouldEqual, 5.0)

				Convey("and the new lifetime sticks for later reads", func() {
					now = now.Add(6 * time.Second)
					_, err := c.Current(ctx, nil)
					So(err, ShouldBeNil)
					So(source.scanCount(), ShouldEqual, 3)
				})
			})

			Convey("A zero lifetime forces a refresh on every read", func() {
				ttl := 0.0
				_, err := c.Current(ctx, &ttl)
				So(err, ShouldBeNil)
				_, err = c.Current(ctx, nil)
				So(err, ShouldBeNil)
				So(source.scanCount(), ShouldEqual, 3)
			})

			Convey("A negative lifetime is ignored", func() {
				ttl := -1.0
				_, err := c.Current(ctx, &ttl)
				So(err, ShouldBeNil)
				So(c.TTL(), ShouldEqual, 30.0)
				So(source.scanCount(), ShouldEqual, 1)
			})
		})

		Convey("A scan failure surfaces without priming the cache", func() {
			source.err = errors.New("backend down")
			_, err := c.Current(ctx, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "refresh flag snapshot")

			Convey("and recovery on the next read succeeds", func() {
				source.err = nil
				flags, err := c.Current(ctx, nil)
				So(err, ShouldBeNil)
				So(flags, ShouldHaveLength, 2)
			})
		})

		Convey("A malformed definition fails the refresh", func() {
			source.items = []kvstore.Item{{model.AttrFlag: "bad", model.AttrWeight: "heavy"}}
			_, err := c.Current(ctx, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
