package upstream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	upstream "github.com/aerodrift/constellation/internal/adapters/upstream"
	"github.com/aerodrift/constellation/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestFetchAll(t *testing.T) {
	Convey("Given an upstream serving hourly snapshots", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/02.json":
				w.WriteHeader(http.StatusBadGateway)
			default:
				fmt.Fprintf(w, `[{"id":"b%s","lat":1,"lon":2}]`, r.URL.Path[1:3])
			}
		}))
		defer srv.Close()

		f := upstream.NewFetcher(srv.URL,
			upstream.WithConcurrency(4),
			upstream.WithTimeout(2*time.Second),
		)

		Convey("When fetching four hours", func() {
			got := f.FetchAll(context.Background(), 4)

			Convey("Then results come back hour-ascending", func() {
				So(got, ShouldHaveLength, 4)
				for i, s := range got {
					So(s.Hour, ShouldEqual, i)
				}
			})

			Convey("And the failed hour is isolated", func() {
				So(got[2].Err, ShouldNotBeNil)
				So(got[0].Err, ShouldBeNil)
				So(got[0].Body, ShouldContainSubstring, "b00")
				So(got[3].Body, ShouldContainSubstring, "b03")
			})
		})
	})

	Convey("Given an upstream that never answers in time", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer srv.Close()

		f := upstream.NewFetcher(srv.URL, upstream.WithTimeout(50*time.Millisecond))

		Convey("When fetching one hour", func() {
			got := f.FetchAll(context.Background(), 1)

			Convey("Then the timeout resolves to a per-snapshot error", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].Err, ShouldNotBeNil)
			})
		})
	})
}

func TestLiveClient(t *testing.T) {
	Convey("Given a live feed serving aircraft positions", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[
				{"icao":"abc123","id":"abc123","lat":51.5,"lon":-0.1,"alt":11000,"gs":450,"track":270},
				{"id":"def456","lat":48.8,"lon":2.3,"alt":9500}
			]`)
		}))
		defer srv.Close()

		c := upstream.NewLiveClient(srv.URL, upstream.WithLiveTimeout(2*time.Second))

		Convey("When refreshing the cache", func() {
			err := c.Refresh(context.Background())

			Convey("Then positions are parsed with velocity and heading", func() {
				So(err, ShouldBeNil)
				got := c.Positions()
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "abc123")
				So(got[0].Velocity, ShouldNotBeNil)
				So(*got[0].Velocity, ShouldEqual, 450)
				So(*got[0].Heading, ShouldEqual, 270)
				So(got[1].Velocity, ShouldBeNil)
			})
		})
	})

	Convey("Given a live feed with an unusable body", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"maintenance"}`)
		}))
		defer srv.Close()

		c := upstream.NewLiveClient(srv.URL)

		Convey("When refreshing", func() {
			err := c.Refresh(context.Background())

			Convey("Then the previous (empty) cache is kept and an error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(c.Positions(), ShouldBeEmpty)
			})
		})
	})
}
