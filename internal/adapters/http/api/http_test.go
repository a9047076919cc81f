package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/okian/squadlink/internal/adapters/http/api"
	"github.com/okian/squadlink/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type mockLister struct {
	datasets map[string][]repository.Dataset
	err      error
}

func (m *mockLister) Datasets(_ context.Context, runID string) ([]repository.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.datasets[runID], nil
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given an API server with a run store", t, func() {
		stats := &mockStatsProvider{stats: map[string]interface{}{"runId": "run-1", "teams": 20}}
		lister := &mockLister{datasets: map[string][]repository.Dataset{
			"run-1": {{
				RunID:     "run-1",
				Name:      "results",
				Columns:   []string{"Player", "Min"},
				Rows:      493,
				CreatedAt: time.Date(2025, 5, 25, 16, 0, 0, 0, time.UTC),
			}},
		}}
		mux := http.NewServeMux()
		api.NewServer(stats, lister).Register(mux)

		Convey("When the health endpoint is requested", func() {
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then it answers with the metrics exposition", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "squadlink_pipeline")
			})
		})

		Convey("When stats are requested", func() {
			w := serve(mux, http.MethodGet, "/stats")

			Convey("Then the provider's stats are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				var got map[string]interface{}
				So(sonic.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["runId"], ShouldEqual, "run-1")
				So(got["teams"], ShouldEqual, 20.0)
			})
		})

		Convey("When stats are posted", func() {
			So(serve(mux, http.MethodPost, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the datasets of a known run are requested", func() {
			w := serve(mux, http.MethodGet, "/runs/run-1/datasets")

			Convey("Then they are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"name":"results"`)
				So(w.Body.String(), ShouldContainSubstring, `"rows":493`)
				So(w.Body.String(), ShouldContainSubstring, `"created_at":"2025-05-25T16:00:00Z"`)
			})
		})

		Convey("When the datasets of an unknown run are requested", func() {
			w := serve(mux, http.MethodGet, "/runs/run-9/datasets")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the store fails", func() {
			lister.err = errors.New("disk gone")
			w := serve(mux, http.MethodGet, "/runs/run-1/datasets")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "disk gone")
		})
	})

	Convey("Given an API server without a run store", t, func() {
		mux := http.NewServeMux()
		api.NewServer(&mockStatsProvider{stats: map[string]interface{}{}}, nil).Register(mux)

		Convey("Then the datasets route is absent", func() {
			So(serve(mux, http.MethodGet, "/runs/run-1/datasets").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
