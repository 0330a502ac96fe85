// Package testfeed generates a synthetic hourly snapshot feed for local
// development and load testing. It reproduces the real feed's unpleasant
// variety: shifting payload shapes, mixed key aliases, mixed units and
// deliberately malformed bodies, all deterministic per seed.
package testfeed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Generator produces snapshot bodies for hours 0..23.
type Generator struct {
	balloons      int
	seed          int64
	malformed     map[int]bool
	undecodable   map[int]bool
	driftDegrees  float64
	baseAltitudeM float64
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithBalloons sets the constellation size.
func WithBalloons(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.balloons = n
		}
	}
}

// WithSeed fixes the random seed so runs are reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithMalformedHours marks hours whose bodies carry repairable damage:
// trailing commas, comments, HTML wrapping.
func WithMalformedHours(hours ...int) Option {
	return func(g *Generator) {
		for _, h := range hours {
			g.malformed[h] = true
		}
	}
}

// WithUndecodableHours marks hours whose bodies are beyond repair.
func WithUndecodableHours(hours ...int) Option {
	return func(g *Generator) {
		for _, h := range hours {
			g.undecodable[h] = true
		}
	}
}

// New constructs a Generator with default configuration.
func New(opts ...Option) *Generator {
	g := &Generator{
		balloons:      50,
		seed:          1,
		malformed:     make(map[int]bool),
		undecodable:   make(map[int]bool),
		driftDegrees:  0.8,
		baseAltitudeM: 15000,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Balloons returns the constellation size.
func (g *Generator) Balloons() int {
	return g.balloons
}

// Body returns the snapshot body for one hour of age. The payload shape
// rotates by hour so all enumeration paths get exercised.
func (g *Generator) Body(hour int) string {
	if g.undecodable[hour] {
		return "upstream exploded, try again later"
	}

	var body string
	switch hour % 3 {
	case 0:
		body = g.objectRows(hour)
	case 1:
		body = g.tupleRows(hour)
	default:
		body = g.keyedRows(hour)
	}

	if g.malformed[hour] {
		body = damage(body, hour)
	}
	return body
}

// position derives a deterministic drifting track per balloon. The same
// (seed, balloon) pair walks the same path regardless of query order.
func (g *Generator) position(hour, balloon int) (lat, lon, altM float64) {
	rng := rand.New(rand.NewSource(g.seed + int64(balloon)*7919))
	lat0 := rng.Float64()*140 - 70
	lon0 := rng.Float64()*360 - 180
	heading := rng.Float64() * 2 * math.Pi

	// Hour 0 is newest; older hours sit further back along the track.
	back := float64(hour) * g.driftDegrees
	lat = lat0 - back*math.Sin(heading)
	lon = lon0 - back*math.Cos(heading)
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}
	altM = g.baseAltitudeM + rng.Float64()*6000 - float64(hour)*50
	return lat, lon, altM
}

func (g *Generator) objectRows(hour int) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < g.balloons; i++ {
		lat, lon, alt := g.position(hour, i)
		if i > 0 {
			sb.WriteString(",")
		}
		// Alternate aliases and units within one body.
		if i%2 == 0 {
			fmt.Fprintf(&sb, `{"id":"bal-%04d","lat":%.6f,"lon":%.6f,"alt":%.1f}`, i, lat, lon, alt)
		} else {
			fmt.Fprintf(&sb, `{"name":"bal-%04d","latitude":%.6f,"longitude":%.6f,"altitude_ft":%.1f}`,
				i, lat, lon, alt/0.3048)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

func (g *Generator) tupleRows(hour int) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < g.balloons; i++ {
		lat, lon, alt := g.position(hour, i)
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "[%.6f,%.6f,%.4f]", lat, lon, alt/1000)
	}
	sb.WriteString("]")
	return sb.String()
}

func (g *Generator) keyedRows(hour int) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i := 0; i < g.balloons; i++ {
		lat, lon, alt := g.position(hour, i)
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"bal-%04d":{"gps_lat":%.6f,"gps_lon":%.6f,"height":%.1f}`, i, lat, lon, alt)
	}
	sb.WriteString("}")
	return sb.String()
}

// damage applies a repairable malformation, varying by hour.
func damage(body string, hour int) string {
	switch hour % 3 {
	case 0:
		// Trailing comma before the closing bracket.
		idx := strings.LastIndexAny(body, "]}")
		return body[:idx] + "," + body[idx:]
	case 1:
		return "// hourly snapshot\n" + body
	default:
		return "<html><body>" + body + "</body></html>"
	}
}
