// Package enumerate discovers per-object records inside a generic decoded
// value of unknown shape.
//
// The heuristic is centralized in a tagged-variant classifier so that new
// container shapes are additive and independently testable, rather than
// nested type switches spread through the pipeline.
package enumerate

import "sort"

// Shape classifies a decoded value into one of the known record-container
// layouts.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeArrayOfObjects is a top-level array whose elements are objects.
	ShapeArrayOfObjects
	// ShapeArrayOfTuples is an array of 2-or-3-element coordinate arrays.
	ShapeArrayOfTuples
	// ShapeObjectOfArrays is an object carrying one or more array-valued
	// properties; the best-scoring array holds the records.
	ShapeObjectOfArrays
	// ShapeMapOfObjects is an object whose every value is itself an object,
	// read as a map from identifier to record.
	ShapeMapOfObjects
	// ShapeSingleObject is an object treated as one record.
	ShapeSingleObject
)

func (s Shape) String() string {
	switch s {
	case ShapeArrayOfObjects:
		return "array_of_objects"
	case ShapeArrayOfTuples:
		return "array_of_tuples"
	case ShapeObjectOfArrays:
		return "object_of_arrays"
	case ShapeMapOfObjects:
		return "map_of_objects"
	case ShapeSingleObject:
		return "single_object"
	default:
		return "unknown"
	}
}

// Candidate is one potential record pulled out of the container. ParentKey
// is set only when the record came from a map-of-objects entry; it later
// serves as an identifier fallback.
type Candidate struct {
	ParentKey string
	Fields    map[string]any
}

// Classify returns the container shape of v and, for ShapeObjectOfArrays,
// the selected array as payload. For other shapes payload is v itself.
func Classify(v any) (Shape, any) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return ShapeUnknown, nil
		}
		switch t[0].(type) {
		case map[string]any:
			return ShapeArrayOfObjects, t
		case []any:
			return ShapeArrayOfTuples, t
		default:
			return ShapeUnknown, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return ShapeUnknown, nil
		}
		if best, ok := bestArray(t); ok {
			return ShapeObjectOfArrays, best
		}
		if allObjects(t) {
			return ShapeMapOfObjects, t
		}
		return ShapeSingleObject, t
	default:
		return ShapeUnknown, nil
	}
}

// Enumerate turns a decoded value into an ordered candidate sequence.
// Empty or nil input yields an empty sequence, never an error.
func Enumerate(v any) []Candidate {
	shape, payload := Classify(v)
	switch shape {
	case ShapeArrayOfObjects, ShapeArrayOfTuples:
		return fromArray(payload.([]any))
	case ShapeObjectOfArrays:
		return fromArray(payload.([]any))
	case ShapeMapOfObjects:
		m := payload.(map[string]any)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		// Map iteration order is random; sort so raw indexes and dedup
		// order stay deterministic run to run.
		sort.Strings(keys)
		out := make([]Candidate, 0, len(keys))
		for _, k := range keys {
			out = append(out, Candidate{ParentKey: k, Fields: m[k].(map[string]any)})
		}
		return out
	case ShapeSingleObject:
		return []Candidate{{Fields: payload.(map[string]any)}}
	default:
		return nil
	}
}

func fromArray(arr []any) []Candidate {
	out := make([]Candidate, 0, len(arr))
	for _, el := range arr {
		switch rec := el.(type) {
		case map[string]any:
			out = append(out, Candidate{Fields: rec})
		case []any:
			if len(rec) < 2 {
				continue
			}
			fields := map[string]any{"lat": rec[0], "lon": rec[1]}
			if len(rec) >= 3 {
				fields["altkm"] = rec[2]
			}
			out = append(out, Candidate{Fields: fields})
		}
	}
	return out
}

// bestArray picks the single best-scoring array-valued property: arrays of
// objects beat coordinate-tuple arrays beat scalar arrays, ties broken by
// length. Keys are visited in sorted order so equal candidates resolve the
// same way every run.
func bestArray(m map[string]any) ([]any, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best []any
	bestScore := 0
	for _, k := range keys {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		score := scoreArray(arr)
		if score > bestScore || (score == bestScore && len(arr) > len(best)) {
			best = arr
			bestScore = score
		}
	}
	return best, best != nil
}

func scoreArray(arr []any) int {
	if len(arr) == 0 {
		return 1
	}
	switch el := arr[0].(type) {
	case map[string]any:
		return 3
	case []any:
		if len(el) == 2 || len(el) == 3 {
			return 2
		}
		return 1
	default:
		return 1
	}
}

func allObjects(m map[string]any) bool {
	for _, v := range m {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}
