// Package analytics derives live statistics, percentile summaries and
// pairwise-distance histograms over a sliding time/viewport selection of
// the aggregate record set.
//
// The engine holds no session state beyond the immutable record set it was
// built with; every query carries its own cursor, window and viewport and
// is recomputed synchronously.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aerodrift/constellation/internal/domain/model"
)

// Query is the externally-driven parameter set. Degenerate inputs produce
// explicit status strings, never errors.
type Query struct {
	// Cursor is the right edge of the selection window.
	Cursor time.Time
	// Window is the length of the selection interval [Cursor-Window, Cursor].
	Window time.Duration
	// Viewport optionally restricts the selection spatially. Nil means the
	// consumer's map is not ready; viewport-scoped operations report that.
	Viewport *Bounds
}

// Result statuses. Consumers distinguish degenerate outcomes by string.
const (
	StatusOK                 = "ok"
	StatusNoData             = "no data in window"
	StatusMapNotReady        = "map not ready"
	StatusTooFewPoints       = "fewer than two points"
	StatusNoPointsInViewport = "no points in viewport"
)

// Engine answers windowed queries over one immutable aggregate set.
type Engine struct {
	records []model.Record
}

// New builds an engine over records. The slice is retained as-is and must
// not be mutated by the caller afterwards.
func New(records []model.Record) *Engine {
	return &Engine{records: records}
}

// Len returns the size of the underlying aggregate set.
func (e *Engine) Len() int {
	return len(e.records)
}

// Records exposes the underlying aggregate set. The slice is shared and
// must not be mutated.
func (e *Engine) Records() []model.Record {
	return e.records
}

// WindowRecords selects records with time in [cursor-window, cursor],
// both edges inclusive.
func (e *Engine) WindowRecords(q Query) []model.Record {
	lo := q.Cursor.Add(-q.Window)
	out := make([]model.Record, 0, len(e.records))
	for _, r := range e.records {
		if r.Time.Before(lo) || r.Time.After(q.Cursor) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Latest restricts the window to its single latest whole-hour bucket and
// keeps only the most recent record per identifier. When no record in the
// bucket carries an identifier, it falls back to all records sharing the
// single latest timestamp.
func (e *Engine) Latest(q Query) []model.Record {
	windowed := e.WindowRecords(q)
	if len(windowed) == 0 {
		return nil
	}

	latest := windowed[0].Time
	for _, r := range windowed[1:] {
		if r.Time.After(latest) {
			latest = r.Time
		}
	}
	bucketStart := latest.Truncate(time.Hour)
	bucketEnd := bucketStart.Add(time.Hour)

	var bucket []model.Record
	for _, r := range windowed {
		if r.Time.Before(bucketStart) || !r.Time.Before(bucketEnd) {
			continue
		}
		bucket = append(bucket, r)
	}

	best := make(map[string]int)
	order := make([]string, 0, len(bucket))
	for i, r := range bucket {
		if r.ID == "" {
			continue
		}
		j, seen := best[r.ID]
		if !seen {
			best[r.ID] = i
			order = append(order, r.ID)
			continue
		}
		if r.Time.After(bucket[j].Time) {
			best[r.ID] = i
		}
	}
	if len(order) > 0 {
		out := make([]model.Record, 0, len(order))
		for _, id := range order {
			out = append(out, bucket[best[id]])
		}
		return out
	}

	// Ungroupable: no identifiers anywhere in the bucket.
	var out []model.Record
	for _, r := range bucket {
		if r.Time.Equal(latest) {
			out = append(out, r)
		}
	}
	return out
}

// Summary is the windowed statistics bundle served to the presentation
// layer.
type Summary struct {
	Status        string           `json:"status"`
	WindowCount   int              `json:"window_count"`
	ViewportCount int              `json:"viewport_count,omitempty"`
	LatestCount   int              `json:"latest_count"`
	Altitude      *AltitudeSummary `json:"altitude,omitempty"`
	Distances     *Histogram       `json:"distances,omitempty"`
}

// AltitudeSummary reports percentiles over the altitudes present in the
// window. Records without altitude are excluded from it, not from counts.
type AltitudeSummary struct {
	Count int     `json:"count"`
	MinM  float64 `json:"min_m"`
	MaxM  float64 `json:"max_m"`
	MeanM float64 `json:"mean_m"`
	P10M  float64 `json:"p10_m"`
	P50M  float64 `json:"p50_m"`
	P90M  float64 `json:"p90_m"`
}

// Summarize computes the full windowed bundle for one query.
func (e *Engine) Summarize(q Query) Summary {
	windowed := e.WindowRecords(q)
	if len(windowed) == 0 {
		return Summary{Status: StatusNoData}
	}

	s := Summary{
		Status:      StatusOK,
		WindowCount: len(windowed),
		LatestCount: len(e.Latest(q)),
	}

	var alts []float64
	for _, r := range windowed {
		if r.AltM != nil {
			alts = append(alts, *r.AltM)
		}
	}
	if len(alts) > 0 {
		sort.Float64s(alts)
		s.Altitude = &AltitudeSummary{
			Count: len(alts),
			MinM:  alts[0],
			MaxM:  alts[len(alts)-1],
			MeanM: stat.Mean(alts, nil),
			P10M:  Percentile(alts, 0.10),
			P50M:  Percentile(alts, 0.50),
			P90M:  Percentile(alts, 0.90),
		}
	}

	if q.Viewport != nil {
		inView := 0
		for _, r := range windowed {
			if q.Viewport.Contains(r.Lat, r.Lon) {
				inView++
			}
		}
		s.ViewportCount = inView
		h := e.PairDistances(q)
		s.Distances = &h
	}
	return s
}

// Percentile computes the linear-interpolation percentile over an
// already-sorted sequence: rank p in [0,1] maps to index p*(n-1), with the
// fractional part interpolating between neighbors.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
