package config_test

import (
	"testing"

	"github.com/okian/scorecard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendBadger)
			convey.So(cfg.BadgerPath, convey.ShouldNotBeEmpty)
			convey.So(cfg.S3Prefix, convey.ShouldEqual, "claims")
			convey.So(cfg.FlagCacheLifetime, convey.ShouldEqual, 30)
			convey.So(cfg.ScoreCacheLifetime, convey.ShouldEqual, 30)
		})
	})
}
