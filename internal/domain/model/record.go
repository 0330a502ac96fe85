// Package model contains domain models passed between pipeline stages.
package model

import (
	"fmt"
	"math"
	"time"
)

// Record is one normalized telemetry point. It is constructed exactly once by
// the normalizer and never mutated afterwards; downstream stages only filter
// and select. Lat and Lon are always present and in range; a candidate that
// cannot resolve both never becomes a Record.
type Record struct {
	ID         string   `json:"id"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	AltM       *float64 `json:"alt_m"`
	TimeISO    string   `json:"time_iso"`
	SourceHour int      `json:"source_hour"`
	RawIndex   int      `json:"raw_index"`

	// Time is the parsed form of TimeISO, kept alongside so analytics does
	// not re-parse on every query. Not part of the interchange shape.
	Time time.Time `json:"-"`
}

// NewRecord builds a Record from already-validated fields, deriving TimeISO
// from ts in UTC.
func NewRecord(id string, lat, lon float64, altM *float64, ts time.Time, sourceHour, rawIndex int) Record {
	ts = ts.UTC()
	return Record{
		ID:         id,
		Lat:        lat,
		Lon:        lon,
		AltM:       altM,
		TimeISO:    ts.Format(time.RFC3339),
		SourceHour: sourceHour,
		RawIndex:   rawIndex,
		Time:       ts,
	}
}

// Key returns the dedup key: (id-or-empty, time_iso, lat and lon rounded to
// 1e-6 degrees). Two records with equal keys are the same observation.
func (r Record) Key() string {
	return fmt.Sprintf("%s|%s|%.6f|%.6f", r.ID, r.TimeISO, round6(r.Lat), round6(r.Lon))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Position is one entry from the live external-position feed. Only ID,
// Lat/Lon and AltM participate in analytics; velocity and heading are
// carried for the presentation layer.
type Position struct {
	ID       string   `json:"id"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	AltM     *float64 `json:"alt_m"`
	Velocity *float64 `json:"velocity"`
	Heading  *float64 `json:"heading"`
}
