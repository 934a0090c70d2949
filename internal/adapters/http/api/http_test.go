package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/hntally/internal/adapters/http/api"
	"github.com/okian/hntally/internal/adapters/remote/fixture"
	service "github.com/okian/hntally/internal/app"
	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockRunner records the limits it was called with.
type mockRunner struct {
	topN, topK int
	res        model.RunResult
	err        error
	block      bool
}

func (m *mockRunner) Run(ctx context.Context, topN, topK int) (model.RunResult, error) {
	m.topN, m.topK = topN, topK
	if m.block {
		<-ctx.Done()
		return model.RunResult{}, ctx.Err()
	}
	return m.res, m.err
}

func newMux(runner api.Runner, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(runner, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestTopCommenters(t *testing.T) {
	Convey("Given the API backed by a fixture store", t, func() {
		store := fixture.New(fixture.WithThreads(
			fixture.Thread{ID: 1, Title: "A", Authors: []string{"x", "y", "x"}},
			fixture.Thread{ID: 2, Title: "B", Authors: []string{"y"}},
		))
		mux := newMux(service.New(store))

		Convey("When requesting the top commenters", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters?top_n=2&top_k=1")

			Convey("Then the run result is returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")

				var res model.RunResult
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Items, ShouldHaveLength, 2)
				So(res.Items[0].Commenters, ShouldResemble, []model.Commenter{{Author: "x", ItemCount: 2, GlobalCount: 2}})
				So(res.Items[1].Commenters, ShouldResemble, []model.Commenter{{Author: "y", ItemCount: 1, GlobalCount: 2}})
			})
		})

		Convey("When a limit is not positive", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters?top_n=0")

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(store.Calls(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given the API backed by a mock runner", t, func() {
		runner := &mockRunner{}
		mux := newMux(runner, api.WithDefaults(5, 3), api.WithMaxTopN(50))

		Convey("When limits are omitted", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters")

			Convey("Then the defaults are used", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(runner.topN, ShouldEqual, 5)
				So(runner.topK, ShouldEqual, 3)
			})
		})

		Convey("When a limit is not a number", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters?top_k=ten")

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "top_k must be an integer")
			})
		})

		Convey("When top_n exceeds the maximum", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters?top_n=51")

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})

		Convey("When using the wrong method", func() {
			rec := do(mux, http.MethodPost, "/v1/top-commenters")

			Convey("Then it is not allowed", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		errCases := []struct {
			err  error
			code int
		}{
			{fmt.Errorf("%w: empty", service.ErrInsufficientData), http.StatusBadGateway},
			{fmt.Errorf("%w: top_n", service.ErrInvalidConfig), http.StatusBadRequest},
			{context.DeadlineExceeded, http.StatusGatewayTimeout},
			{context.Canceled, http.StatusServiceUnavailable},
			{fmt.Errorf("boom"), http.StatusInternalServerError},
		}
		for _, tc := range errCases {
			Convey("When the run fails with "+tc.err.Error(), func() {
				runner.err = tc.err
				rec := do(mux, http.MethodGet, "/v1/top-commenters")

				Convey("Then the status reflects the failure", func() {
					So(rec.Code, ShouldEqual, tc.code)
				})
			})
		}
	})

	Convey("Given a run timeout", t, func() {
		runner := &mockRunner{block: true}
		mux := newMux(runner, api.WithRunTimeout(20*time.Millisecond))

		Convey("When the run does not finish in time", func() {
			rec := do(mux, http.MethodGet, "/v1/top-commenters")

			Convey("Then the gateway timeout status is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusGatewayTimeout)
			})
		})
	})
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(&mockRunner{})

		Convey("When probing health", func() {
			rec := do(mux, http.MethodGet, "/healthz")

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When scraping metrics after a request", func() {
			do(mux, http.MethodGet, "/healthz")
			rec := do(mux, http.MethodGet, "/metrics")

			Convey("Then the crawler metrics are exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(rec.Body.String(), "hntally_crawler_http_requests_total"), ShouldBeTrue)
			})
		})
	})
}
