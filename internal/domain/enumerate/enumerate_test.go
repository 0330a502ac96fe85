package enumerate_test

import (
	"testing"

	enumerate "github.com/aerodrift/constellation/internal/domain/enumerate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given the shape classifier", t, func() {
		Convey("When the value is an array of objects", func() {
			shape, _ := enumerate.Classify([]any{map[string]any{"lat": 1.0}})
			So(shape, ShouldEqual, enumerate.ShapeArrayOfObjects)
		})

		Convey("When the value is an array of coordinate tuples", func() {
			shape, _ := enumerate.Classify([]any{[]any{1.0, 2.0, 3.0}})
			So(shape, ShouldEqual, enumerate.ShapeArrayOfTuples)
		})

		Convey("When the value is an object with array properties", func() {
			shape, payload := enumerate.Classify(map[string]any{
				"meta":     map[string]any{"v": 1.0},
				"balloons": []any{map[string]any{"lat": 1.0}},
			})
			So(shape, ShouldEqual, enumerate.ShapeObjectOfArrays)
			So(payload, ShouldHaveLength, 1)
		})

		Convey("When the value is a map from id to object", func() {
			shape, _ := enumerate.Classify(map[string]any{
				"b1": map[string]any{"lat": 1.0},
				"b2": map[string]any{"lat": 2.0},
			})
			So(shape, ShouldEqual, enumerate.ShapeMapOfObjects)
		})

		Convey("When the value is a flat object", func() {
			shape, _ := enumerate.Classify(map[string]any{"lat": 1.0, "lon": 2.0})
			So(shape, ShouldEqual, enumerate.ShapeSingleObject)
		})

		Convey("When the value is nil or empty", func() {
			shape, _ := enumerate.Classify(nil)
			So(shape, ShouldEqual, enumerate.ShapeUnknown)

			shape, _ = enumerate.Classify([]any{})
			So(shape, ShouldEqual, enumerate.ShapeUnknown)
		})
	})
}

func TestEnumerate(t *testing.T) {
	Convey("Given the record enumerator", t, func() {
		Convey("When enumerating an array of objects", func() {
			got := enumerate.Enumerate([]any{
				map[string]any{"lat": 1.0},
				map[string]any{"lat": 2.0},
			})

			Convey("Then each object is one candidate without a parent key", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].ParentKey, ShouldBeEmpty)
			})
		})

		Convey("When enumerating coordinate tuples", func() {
			got := enumerate.Enumerate([]any{
				[]any{10.5, 20.5, 3.2},
				[]any{-5.0, 100.0},
				[]any{1.0}, // too short, skipped
			})

			Convey("Then tuples synthesize lat/lon/altkm fields", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].Fields["lat"], ShouldEqual, 10.5)
				So(got[0].Fields["lon"], ShouldEqual, 20.5)
				So(got[0].Fields["altkm"], ShouldEqual, 3.2)
				_, hasAlt := got[1].Fields["altkm"]
				So(hasAlt, ShouldBeFalse)
			})
		})

		Convey("When an object wraps several arrays", func() {
			got := enumerate.Enumerate(map[string]any{
				"tags":   []any{"a", "b", "c", "d"},
				"coords": []any{[]any{1.0, 2.0}},
				"items":  []any{map[string]any{"lat": 1.0}},
			})

			Convey("Then the array of objects wins despite being shortest", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].Fields["lat"], ShouldEqual, 1.0)
			})
		})

		Convey("When two arrays tie on score", func() {
			got := enumerate.Enumerate(map[string]any{
				"short": []any{map[string]any{"n": 1.0}},
				"long":  []any{map[string]any{"n": 2.0}, map[string]any{"n": 3.0}},
			})

			Convey("Then the longer array is selected", func() {
				So(got, ShouldHaveLength, 2)
			})
		})

		Convey("When enumerating a map of objects", func() {
			got := enumerate.Enumerate(map[string]any{
				"unit-b": map[string]any{"lat": 2.0},
				"unit-a": map[string]any{"lat": 1.0},
			})

			Convey("Then entries carry their key and come out in sorted order", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].ParentKey, ShouldEqual, "unit-a")
				So(got[1].ParentKey, ShouldEqual, "unit-b")
			})
		})

		Convey("When enumerating a single object", func() {
			got := enumerate.Enumerate(map[string]any{"lat": 1.0, "lon": 2.0})
			So(got, ShouldHaveLength, 1)
		})

		Convey("When enumerating nothing", func() {
			So(enumerate.Enumerate(nil), ShouldBeEmpty)
			So(enumerate.Enumerate("scalar"), ShouldBeEmpty)
		})
	})
}
