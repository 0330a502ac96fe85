package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	api "github.com/aerodrift/constellation/internal/adapters/http/api"
	"github.com/aerodrift/constellation/internal/domain/analytics"
	"github.com/aerodrift/constellation/internal/domain/model"
	"github.com/aerodrift/constellation/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeDeps answers handler queries from a fixed record set.
type fakeDeps struct {
	records []model.Record

	lastQuery  analytics.Query
	lastSource string
}

func (f *fakeDeps) Records(_ context.Context) []model.Record { return f.records }

func (f *fakeDeps) Summarize(_ context.Context, q analytics.Query) analytics.Summary {
	f.lastQuery = q
	return analytics.Summary{Status: analytics.StatusOK, WindowCount: len(f.records)}
}

func (f *fakeDeps) PairDistances(_ context.Context, q analytics.Query) analytics.Histogram {
	f.lastQuery = q
	f.lastSource = "pair"
	return analytics.Histogram{Status: analytics.StatusOK, Count: 1}
}

func (f *fakeDeps) LiveDistances(_ context.Context, q analytics.Query) analytics.Histogram {
	f.lastQuery = q
	f.lastSource = "live"
	return analytics.Histogram{Status: analytics.StatusOK, Count: 2}
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"records": 2}
}

func newTestServer(deps *fakeDeps, upstreamURL string) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}, upstreamURL).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func sampleSet() []model.Record {
	alt := 15000.0
	return []model.Record{
		model.NewRecord("b-1", 10, 20, &alt, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0, 0),
		model.NewRecord("b-2", 11, 21, nil, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), 1, 0),
	}
}

func TestRecordsEndpoint(t *testing.T) {
	Convey("Given an API server with two records", t, func() {
		deps := &fakeDeps{records: sampleSet()}
		srv := newTestServer(deps, "http://unused.test")
		defer srv.Close()

		Convey("When requesting NDJSON (the default)", func() {
			resp, err := http.Get(srv.URL + "/api/records")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then both records stream back one per line", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "ndjson")
				body := readAll(resp)
				So(strings.Count(body, "\n"), ShouldEqual, 2)
				So(body, ShouldContainSubstring, `"id":"b-1"`)
			})
		})

		Convey("When requesting CSV filtered by id", func() {
			resp, err := http.Get(srv.URL + "/api/records?format=csv&id=b-2")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then only the matching row follows the header", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "text/csv")
				lines := strings.Split(strings.TrimSpace(readAll(resp)), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldStartWith, "id,time_iso")
				So(lines[1], ShouldStartWith, "b-2,")
			})
		})

		Convey("When requesting an unknown format", func() {
			resp, err := http.Get(srv.URL + "/api/records?format=xml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Post(srv.URL+"/api/records", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSummaryEndpoint(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &fakeDeps{records: sampleSet()}
		srv := newTestServer(deps, "http://unused.test")
		defer srv.Close()

		Convey("When querying with a full parameter set", func() {
			resp, err := http.Get(srv.URL +
				"/api/summary?cursor=2026-01-01T06:00:00Z&window_ms=7200000&west=-10&south=-10&east=30&north=30")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the query reaches analytics parsed correctly", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Cursor, ShouldEqual, time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC))
				So(deps.lastQuery.Window, ShouldEqual, 2*time.Hour)
				So(deps.lastQuery.Viewport, ShouldNotBeNil)
				So(deps.lastQuery.Viewport.East, ShouldEqual, 30.0)

				var got analytics.Summary
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Status, ShouldEqual, analytics.StatusOK)
				So(got.WindowCount, ShouldEqual, 2)
			})
		})

		Convey("When omitting the viewport entirely", func() {
			resp, err := http.Get(srv.URL + "/api/summary")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the query defaults apply", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Viewport, ShouldBeNil)
				So(deps.lastQuery.Window, ShouldEqual, 24*time.Hour)
			})
		})

		Convey("When supplying a partial viewport", func() {
			resp, err := http.Get(srv.URL + "/api/summary?west=-10&south=-10")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When supplying a malformed cursor", func() {
			resp, err := http.Get(srv.URL + "/api/summary?cursor=yesterday")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When supplying a non-positive window", func() {
			resp, err := http.Get(srv.URL + "/api/summary?window_ms=0")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDistancesEndpoint(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &fakeDeps{records: sampleSet()}
		srv := newTestServer(deps, "http://unused.test")
		defer srv.Close()

		Convey("When requesting the default source", func() {
			resp, err := http.Get(srv.URL + "/api/distances?west=0&south=0&east=30&north=30")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then pairwise distances are computed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastSource, ShouldEqual, "pair")
			})
		})

		Convey("When requesting the live source", func() {
			resp, err := http.Get(srv.URL + "/api/distances?source=live&west=0&south=0&east=30&north=30")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then live distances are computed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastSource, ShouldEqual, "live")
				var got analytics.Histogram
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Count, ShouldEqual, 2)
			})
		})

		Convey("When requesting an unknown source", func() {
			resp, err := http.Get(srv.URL + "/api/distances?source=radar")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestProxyEndpoint(t *testing.T) {
	Convey("Given an upstream and a proxying API server", t, func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/07.json":
				fmt.Fprint(w, `[{"lat":1,"lon":2}]`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, "no snapshot for that hour")
			}
		}))
		defer upstream.Close()

		deps := &fakeDeps{}
		srv := newTestServer(deps, upstream.URL)
		defer srv.Close()

		Convey("When requesting a valid hour file", func() {
			resp, err := http.Get(srv.URL + "/proxy?file=07.json")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the body is forwarded with CORS and cache headers", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(resp.Header.Get("Cache-Control"), ShouldContainSubstring, "max-age=60")
				So(readAll(resp), ShouldContainSubstring, `"lat":1`)
			})
		})

		Convey("When the file name is out of contract", func() {
			for _, bad := range []string{"7.json", "123.json", "../etc/passwd", "07.json.bak", ""} {
				resp, err := http.Get(srv.URL + "/proxy?file=" + bad)
				So(err, ShouldBeNil)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the upstream has no such hour", func() {
			resp, err := http.Get(srv.URL + "/proxy?file=23.json")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the upstream status and body come through untouched", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(readAll(resp), ShouldContainSubstring, "no snapshot")
			})
		})

		Convey("When the upstream is unreachable", func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			dead.Close()
			gone := newTestServer(deps, dead.URL)
			defer gone.Close()

			resp, err := http.Get(gone.URL + "/proxy?file=07.json")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Post(srv.URL+"/proxy?file=07.json", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &fakeDeps{records: sampleSet()}
		srv := newTestServer(deps, "http://unused.test")
		defer srv.Close()

		Convey("When probing /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then status and vitals come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				body := readAll(resp)
				So(body, ShouldContainSubstring, `"status":"ok"`)
				So(body, ShouldContainSubstring, `"records":2`)
			})
		})

		Convey("When fetching /stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(readAll(resp), ShouldContainSubstring, `"records":2`)
		})

		Convey("When scraping /metrics", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(readAll(resp), ShouldContainSubstring, "constellation_")
		})
	})
}

func readAll(resp *http.Response) string {
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			return sb.String()
		}
	}
}
