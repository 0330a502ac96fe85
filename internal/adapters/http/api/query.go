package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aerodrift/constellation/internal/domain/analytics"
)

const defaultWindow = 24 * time.Hour

// parseAnalyticsQuery reads the shared cursor/window/viewport parameters.
//
//	cursor    RFC3339, defaults to now
//	window_ms positive integer milliseconds, defaults to 24h
//	west, south, east, north  viewport bounds; all four or none
func parseAnalyticsQuery(r *http.Request) (analytics.Query, error) {
	q := analytics.Query{Cursor: time.Now().UTC(), Window: defaultWindow}
	vals := r.URL.Query()

	if s := vals.Get("cursor"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("invalid cursor; must be RFC3339")
		}
		q.Cursor = ts.UTC()
	}

	if s := vals.Get("window_ms"); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil || ms <= 0 {
			return q, errors.New("invalid window_ms; must be a positive integer")
		}
		q.Window = time.Duration(ms) * time.Millisecond
	}

	names := []string{"west", "south", "east", "north"}
	var set int
	bounds := make([]float64, len(names))
	for i, name := range names {
		s := vals.Get(name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, errors.New("invalid " + name + "; must be a number")
		}
		bounds[i] = v
		set++
	}
	switch set {
	case 0:
		// No viewport; analytics reports map-not-ready for distance queries.
	case len(names):
		q.Viewport = &analytics.Bounds{West: bounds[0], South: bounds[1], East: bounds[2], North: bounds[3]}
	default:
		return q, errors.New("viewport requires all of west, south, east, north")
	}
	return q, nil
}
