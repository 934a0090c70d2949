package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	service "github.com/okian/hntally/internal/app"
	"github.com/okian/hntally/internal/config"
	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const sampleFixture = "../internal/adapters/remote/fixture/testdata/sample.yaml"

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command with a fixture", t, func() {
		convey.Convey("When running with text output", func() {
			out, _, err := execute("--fixture", sampleFixture, "--top-n", "4", "--top-k", "2")

			convey.Convey("Then each story is reported with run-wide totals", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Story A [1]\n"+
					"  1. user-b (2 for story - 2 total)\n"+
					"  2. user-a (1 for story - 2 total)\n")
				convey.So(out, convey.ShouldContainSubstring, "Story B [2]\n  no comments\n")
				convey.So(out, convey.ShouldContainSubstring, "Story C [3]\n"+
					"  1. user-c (1 for story - 1 total)\n"+
					"  2. user-a (1 for story - 2 total)\n")
				convey.So(out, convey.ShouldContainSubstring, "skipped 1 item(s): [4]")
			})
		})

		convey.Convey("When running with json output", func() {
			out, _, err := execute("--fixture", sampleFixture, "-o", "json", "--top-n", "1", "--workers", "1", "--fetch-concurrency", "1")

			convey.Convey("Then the result is a JSON document", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.RunResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Items, convey.ShouldHaveLength, 1)
				convey.So(res.Items[0].Title, convey.ShouldEqual, "Story A")
			})
		})

		convey.Convey("When a limit flag is invalid", func() {
			_, _, err := execute("--fixture", sampleFixture, "--top-k", "0")

			convey.Convey("Then the command fails with a config error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the output format is unknown", func() {
			_, _, err := execute("--fixture", sampleFixture, "-o", "xml")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the fixture is missing", func() {
			_, _, err := execute("--fixture", "testdata/missing.yaml")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRunOnce(t *testing.T) {
	convey.Convey("Given a config pointing at an empty fixture", t, func() {
		if err := logger.Init(); err != nil {
			t.Fatalf("failed to initialize logger: %v", err)
		}
		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte("top: []\nitems: []\n"), 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		cfg := config.New(context.Background())
		cfg.FixturePath = path

		convey.Convey("When running once", func() {
			err := runOnce(context.Background(), cfg, &bytes.Buffer{})

			convey.Convey("Then there is not enough data", func() {
				convey.So(errors.Is(err, service.ErrInsufficientData), convey.ShouldBeTrue)
			})
		})
	})
}
