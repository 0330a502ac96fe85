package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	archive "github.com/aerodrift/constellation/internal/adapters/archive"
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

func TestStoreRunAndQuery(t *testing.T) {
	Convey("Given an archive store on disk", t, func() {
		path := filepath.Join(t.TempDir(), "archive.db")
		store, err := archive.Open(path)
		So(err, ShouldBeNil)
		So(store, ShouldNotBeNil)
		defer store.Close()

		alt := 18000.0
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		records := []model.Record{
			model.NewRecord("b-1", 10, 20, &alt, base, 0, 0),
			model.NewRecord("b-2", 11, 21, nil, base.Add(-2*time.Hour), 2, 1),
		}

		Convey("When storing one run", func() {
			So(store.StoreRun(context.Background(), "run-1", records), ShouldBeNil)

			Convey("Then a full-range query returns both, newest first", func() {
				got, err := store.QueryRange(context.Background(), base.Add(-24*time.Hour), base)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "b-1")
				So(*got[0].AltM, ShouldEqual, 18000.0)
				So(got[1].AltM, ShouldBeNil)
			})

			Convey("And a narrow range excludes the older record", func() {
				got, err := store.QueryRange(context.Background(), base.Add(-time.Hour), base)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "b-1")
			})

			Convey("And the run count reflects distinct runs", func() {
				So(store.StoreRun(context.Background(), "run-2", records[:1]), ShouldBeNil)
				n, err := store.RunCount(context.Background())
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})

	Convey("Given an empty archive path", t, func() {
		store, err := archive.Open("")

		Convey("Then archiving is disabled and the nil store is safe", func() {
			So(err, ShouldBeNil)
			So(store, ShouldBeNil)
			So(store.StoreRun(context.Background(), "run", nil), ShouldBeNil)
			got, qerr := store.QueryRange(context.Background(), time.Time{}, time.Now())
			So(qerr, ShouldBeNil)
			So(got, ShouldBeEmpty)
			So(store.Close(), ShouldBeNil)
		})
	})
}
