package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the crawler metrics", func() {
				So(manager, ShouldNotBeNil)
				manager.itemsVisited.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "hntally_crawler_items_visited_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("walker"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels should follow the options", func() {
				manager.commentsCounted.Add(3)
				expected := `
# HELP test_walker_comments_counted_total Authored comments counted
# TYPE test_walker_comments_counted_total counter
test_walker_comments_counted_total{env="test"} 3
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_walker_comments_counted_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording remote fetches", func() {
			before := testutil.ToFloat64(globalManager.remoteFetches.WithLabelValues("get_item", OutcomeNotFound))
			RecordRemoteFetch("get_item", OutcomeNotFound, 12)

			Convey("Then the labelled counter should move", func() {
				after := testutil.ToFloat64(globalManager.remoteFetches.WithLabelValues("get_item", OutcomeNotFound))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When tracking in-flight calls", func() {
			start := testutil.ToFloat64(globalManager.remoteInFlight)
			IncRemoteInFlight()
			IncRemoteInFlight()
			DecRemoteInFlight()

			Convey("Then the gauge should reflect the balance", func() {
				So(testutil.ToFloat64(globalManager.remoteInFlight)-start, ShouldEqual, 1)
				DecRemoteInFlight()
			})
		})

		Convey("When recording traversal and run metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordItemVisited()
					RecordCommentCounted()
					RecordBranchAbandoned()
					RecordDuplicateSkipped()
					RecordSubtreeDepth(4)
					RecordTopLevelTask(OutcomeOK)
					UpdateQueueSize(3)
					UpdateQueueCapacity(30)
					UpdateWorkerCount(8)
					RecordWorkerTaskLatency(40)
					RecordRateLimitWait(2)
					RecordRun(OutcomeOK, 1500)
					RecordHTTPRequest("/v1/top-commenters", "GET", "200")
					RecordHTTPRequestDuration("/v1/top-commenters", "GET", "200", 1500)
					RecordErrorByComponent("walker", "fetch_failed")
				}, ShouldNotPanic)
			})
		})

		Convey("When reading the registry", func() {
			Convey("Then it should be the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
