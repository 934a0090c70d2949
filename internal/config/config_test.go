package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/hntally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should carry the defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.BaseURL, convey.ShouldEqual, "https://hacker-news.firebaseio.com/v0")
			convey.So(cfg.TopN, convey.ShouldEqual, 30)
			convey.So(cfg.TopK, convey.ShouldEqual, 10)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.FetchConcurrency, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.Output, convey.ShouldEqual, config.OutputText)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations should derive from the millisecond fields", func() {
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.RunTimeout(), convey.ShouldEqual, time.Duration(0))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero top_n", func(c *config.Config) { c.TopN = 0 }},
		{"negative top_k", func(c *config.Config) { c.TopK = -1 }},
		{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
		{"zero fetch concurrency", func(c *config.Config) { c.FetchConcurrency = 0 }},
		{"zero request timeout", func(c *config.Config) { c.RequestTimeoutMS = 0 }},
		{"negative retries", func(c *config.Config) { c.RetryCount = -1 }},
		{"negative rate", func(c *config.Config) { c.RateLimitRPS = -2 }},
		{"negative run timeout", func(c *config.Config) { c.RunTimeoutMS = -1 }},
		{"unknown output", func(c *config.Config) { c.Output = "xml" }},
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"no source", func(c *config.Config) { c.BaseURL = "" }},
	}

	convey.Convey("Given invalid configs", t, func() {
		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given a fixture path and no base url", t, func() {
		cfg := config.New(context.Background())
		cfg.BaseURL = ""
		cfg.FixturePath = "testdata/sample.yaml"

		convey.Convey("Then the config is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
