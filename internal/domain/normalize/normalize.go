// Package normalize flattens candidate records and infers canonical
// latitude, longitude, altitude, timestamp and identifier values from them
// using ordered heuristic tables.
//
// The contract is best-effort extraction with graceful rejection: a
// candidate that cannot resolve both coordinates yields no record, and
// nothing here returns an error.
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/aerodrift/constellation/internal/domain/enumerate"
	"github.com/aerodrift/constellation/internal/domain/model"
)

// Normalizer converts enumerated candidates into normalized records.
type Normalizer struct {
	now func() time.Time
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source used for the fallback timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// New constructs a Normalizer with default configuration.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a record from one candidate. The boolean result is false
// when either coordinate is unresolvable; such candidates are dropped and
// their siblings are unaffected.
func (n *Normalizer) Normalize(c enumerate.Candidate, sourceHour, rawIndex int) (model.Record, bool) {
	flat := Flatten(c.Fields)

	lat, latOK := probeCoordinate(flat, latProbes, 90)
	lon, lonOK := probeCoordinate(flat, lonProbes, 180)
	if !latOK || !lonOK {
		return model.Record{}, false
	}

	altM := extractAltitude(flat)

	ts, ok := extractTime(flat)
	if !ok {
		// Approximate: top of the hour the snapshot describes. An explicit
		// approximation, not a failure.
		ts = n.now().UTC().Add(-time.Duration(sourceHour) * time.Hour).Truncate(time.Hour)
	}

	id := extractID(c.ParentKey, flat)

	return model.NewRecord(id, lat, lon, altM, ts, sourceHour, rawIndex), true
}

// Flatten walks nested objects, canonicalizes each path segment and stores
// scalar leaves under their leaf canonical key; on collision the
// lexicographically later path wins. Arrays are opaque leaf values.
func Flatten(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	flattenInto(fields, out)
	return out
}

func flattenInto(m map[string]any, out map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic overwrite order; generic maps have none of their own.
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]any:
			flattenInto(v, out)
		default:
			out[CanonicalKey(k)] = v
		}
	}
}

// probeCoordinate runs an ordered probe table and range-checks the result.
// An out-of-range value rejects the coordinate outright rather than falling
// through to later aliases.
func probeCoordinate(flat map[string]any, probes []probe, limit float64) (float64, bool) {
	v, ok := probeNumber(flat, probes)
	if !ok {
		return 0, false
	}
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func probeNumber(flat map[string]any, probes []probe) (float64, bool) {
	for _, p := range probes {
		raw, present := flat[p.key]
		if !present || raw == nil {
			continue
		}
		if num, ok := CoerceFloat(raw); ok {
			return num * p.scale, true
		}
	}
	return 0, false
}

func extractAltitude(flat map[string]any) *float64 {
	if v, ok := probeNumber(flat, altProbes); ok {
		return &v
	}
	// Last resort: any string field carrying an explicit unit token.
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := flat[k].(string)
		if !ok {
			continue
		}
		m := unitPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
		if m == nil {
			continue
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		var v float64
		switch {
		case strings.HasPrefix(m[2], "km") || strings.HasPrefix(m[2], "kilometer"):
			v = num * 1000
		case strings.HasPrefix(m[2], "m"):
			v = num
		default:
			v = num * feetToMeters
		}
		return &v
	}
	return nil
}

func extractTime(flat map[string]any) (time.Time, bool) {
	var raw any
	for _, k := range timeKeys {
		if v, present := flat[k]; present && v != nil {
			raw = v
			break
		}
	}
	if raw == nil {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case float64:
		return epochToTime(v), true
	case string:
		s := strings.TrimSpace(v)
		if bareNumber.MatchString(s) {
			sec, err := strconv.ParseFloat(s, 64)
			if err == nil {
				return epochToTime(sec), true
			}
		}
		ts, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	default:
		return time.Time{}, false
	}
}

// epochToTime treats values as epoch seconds unless their magnitude says
// milliseconds. The two thresholds applying the same divisor mirror the
// upstream feed's observed behavior and are intentionally left as-is;
// microsecond inputs come out mis-scaled.
func epochToTime(sec float64) time.Time {
	if sec > 1e12 {
		sec /= 1000
	} else if sec > 1e10 {
		sec /= 1000
	}
	s := int64(sec)
	ns := int64((sec - float64(s)) * 1e9)
	return time.Unix(s, ns).UTC()
}

func extractID(parentKey string, flat map[string]any) string {
	for _, k := range idKeys {
		v, present := flat[k]
		if !present || v == nil {
			continue
		}
		if s := formatScalar(v); s != "" {
			return s
		}
	}
	return parentKey
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	default:
		return ""
	}
}

// CoerceFloat accepts a native number or a string with a leading signed
// decimal. Anything else yields no value rather than an error.
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		num, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return num, true
	default:
		return 0, false
	}
}
