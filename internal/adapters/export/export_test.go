package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	export "github.com/aerodrift/constellation/internal/adapters/export"
	"github.com/aerodrift/constellation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRecords() []model.Record {
	alt := 12000.5
	return []model.Record{
		model.NewRecord("b-1", 51.5, -0.1, &alt, time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), 0, 0),
		model.NewRecord("b-2", -33.9, 151.2, nil, time.Date(2026, 1, 2, 2, 0, 0, 0, time.UTC), 1, 4),
	}
}

func TestWriteNDJSON(t *testing.T) {
	Convey("Given two records", t, func() {
		var buf bytes.Buffer

		Convey("When writing NDJSON", func() {
			err := export.WriteNDJSON(&buf, sampleRecords())

			Convey("Then each record occupies one line", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldContainSubstring, `"id":"b-1"`)
				So(lines[0], ShouldContainSubstring, `"alt_m":12000.5`)
				So(lines[1], ShouldContainSubstring, `"alt_m":null`)
			})
		})
	})
}

func TestCSVRoundTrip(t *testing.T) {
	Convey("Given two records written as CSV", t, func() {
		var buf bytes.Buffer
		So(export.WriteCSV(&buf, sampleRecords()), ShouldBeNil)

		Convey("Then the header carries the interchange columns", func() {
			first := strings.SplitN(buf.String(), "\n", 2)[0]
			So(first, ShouldEqual, "id,time_iso,lat,lon,alt_m,source_hour,raw_index")
		})

		Convey("When reading everything back", func() {
			got, err := export.ReadCSV(bytes.NewReader(buf.Bytes()), "")

			Convey("Then the records survive the round trip", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "b-1")
				So(got[0].AltM, ShouldNotBeNil)
				So(*got[0].AltM, ShouldEqual, 12000.5)
				So(got[1].AltM, ShouldBeNil)
				So(got[1].SourceHour, ShouldEqual, 1)
				So(got[1].RawIndex, ShouldEqual, 4)
			})
		})

		Convey("When filtering by identifier", func() {
			got, err := export.ReadCSV(bytes.NewReader(buf.Bytes()), "b-2")

			Convey("Then only the matching rows remain", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "b-2")
			})
		})
	})

	Convey("Given a CSV missing a required column", t, func() {
		in := "id,lat,lon\nb-1,1,2\n"

		Convey("When reading it", func() {
			_, err := export.ReadCSV(strings.NewReader(in), "")

			Convey("Then the header error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "time_iso")
			})
		})
	})

	Convey("Given a CSV with an uncoercible coordinate row", t, func() {
		in := "id,time_iso,lat,lon,alt_m,source_hour,raw_index\nb-1,t,oops,2,,0,0\nb-2,t,1,2,,0,0\n"

		Convey("When reading it", func() {
			got, err := export.ReadCSV(strings.NewReader(in), "")

			Convey("Then the bad row is skipped, not fatal", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "b-2")
			})
		})
	})
}

func TestWriteFiles(t *testing.T) {
	Convey("Given an output directory", t, func() {
		dir := filepath.Join(t.TempDir(), "out")

		Convey("When writing both interchange files", func() {
			nd, cs, err := export.WriteFiles(dir, sampleRecords())

			Convey("Then both files exist and carry content", func() {
				So(err, ShouldBeNil)
				for _, p := range []string{nd, cs} {
					info, statErr := os.Stat(p)
					So(statErr, ShouldBeNil)
					So(info.Size(), ShouldBeGreaterThan, 0)
				}
			})
		})
	})
}
