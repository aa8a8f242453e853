package validity_test

import (
	"testing"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/validity"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func TestEvaluate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	nowSec := validity.UnixSeconds(now)

	Convey("Given the validity rules", t, func() {
		Convey("A flag without a weight never counts", func() {
			def := model.FlagDefinition{Flag: "x"}
			So(validity.Evaluate(def, f(nowSec), now), ShouldBeNil)
			So(validity.Evaluate(def, nil, now), ShouldBeNil)
		})

		Convey("An unclaimed flag never counts", func() {
			def := model.FlagDefinition{Flag: "x", Weight: f(3)}
			So(validity.Evaluate(def, nil, now), ShouldBeNil)
		})

		Convey("A durable flag counts at any age", func() {
			def := model.FlagDefinition{Flag: "x", Weight: f(3)}

			yearAgo := nowSec - 365*24*3600
			got := validity.Evaluate(def, f(yearAgo), now)
			So(got, ShouldNotBeNil)
			So(*got, ShouldEqual, 3.0)
		})

		Convey("A fresh-mode flag counts only inside its window", func() {
			def := model.FlagDefinition{Flag: "x", Weight: f(3), Timeout: f(10), Yes: b(true)}

			Convey("claimed just now", func() {
				got := validity.Evaluate(def, f(nowSec), now)
				So(got, ShouldNotBeNil)
				So(*got, ShouldEqual, 3.0)
			})

			Convey("claimed exactly at the cutoff", func() {
				got := validity.Evaluate(def, f(nowSec-10), now)
				So(got, ShouldNotBeNil)
			})

			Convey("claimed past the cutoff", func() {
				So(validity.Evaluate(def, f(nowSec-10.5), now), ShouldBeNil)
			})
		})

		Convey("An unset yes defaults to fresh mode", func() {
			def := model.FlagDefinition{Flag: "x", Weight: f(3), Timeout: f(10)}
			So(validity.Evaluate(def, f(nowSec-20), now), ShouldBeNil)
			So(validity.Evaluate(def, f(nowSec), now), ShouldNotBeNil)
		})

		Convey("An aged-mode flag counts only past its window", func() {
			def := model.FlagDefinition{Flag: "x", Weight: f(5), Timeout: f(10), Yes: b(false)}

			Convey("claimed just now", func() {
				So(validity.Evaluate(def, f(nowSec), now), ShouldBeNil)
			})

			Convey("claimed exactly at the cutoff", func() {
				got := validity.Evaluate(def, f(nowSec-10), now)
				So(got, ShouldNotBeNil)
				So(*got, ShouldEqual, 5.0)
			})

			Convey("claimed long ago", func() {
				got := validity.Evaluate(def, f(nowSec-100), now)
				So(got, ShouldNotBeNil)
			})
		})

		Convey("The returned weight is a copy", func() {
			weight := 3.0
			def := model.FlagDefinition{Flag: "x", Weight: &weight}
			got := validity.Evaluate(def, f(nowSec), now)
			So(got, ShouldNotBeNil)
			*got = 0
			So(weight, ShouldEqual, 3.0)
		})
	})
}

func TestUnixSeconds(t *testing.T) {
	Convey("UnixSeconds keeps fractional precision", t, func() {
		ts := time.Unix(1700000000, 250_000_000)
		So(validity.UnixSeconds(ts), ShouldEqual, 1700000000.25)
	})

	Convey("UnixSeconds is exact on whole seconds", t, func() {
		ts := time.Unix(1700000000, 0)
		So(validity.UnixSeconds(ts), ShouldEqual, 1700000000.0)
	})
}
