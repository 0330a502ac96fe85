package normalize

import (
	"regexp"
	"strings"
)

// Canonical key folding. Keys are lowercased, stripped to alphanumerics and
// run through the synonym replacer, so every probe table below is written
// against the folded vocabulary. Replacer priority is argument order.
var synonyms = strings.NewReplacer(
	"longitude", "lon",
	"long", "lon",
	"lng", "lon",
	"latitude", "lat",
	"altitude", "alt",
	"updatedat", "time",
	"lastseen", "time",
	"fixtime", "time",
	"timestampms", "timestamp",
	"timeunix", "timestamp",
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// CanonicalKey reduces a raw field name to the canonical vocabulary.
func CanonicalKey(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	k = nonAlnum.ReplaceAllString(k, "")
	return synonyms.Replace(k)
}

// probe is one (key, scale) pair in an ordered extraction table. Evaluation
// stops at the first key present with a coercible numeric value; the scale
// converts it to the canonical unit.
type probe struct {
	key   string
	scale float64
}

const feetToMeters = 0.3048

// Fixed-point e7 encodings are probed before the plain aliases.
var latProbes = []probe{
	{"late7", 1e-7},
	{"lat", 1},
	{"gpslat", 1},
	{"positionlat", 1},
}

var lonProbes = []probe{
	{"lone7", 1e-7},
	{"lnge7", 1e-7},
	{"lon", 1},
	{"gpslon", 1},
	{"positionlon", 1},
}

// Altitude tables, probed in order: kilometers, then meters, then feet.
var altProbes = []probe{
	{"altkm", 1000},
	{"altm", 1},
	{"alt", 1},
	{"msl", 1},
	{"baroalt", 1},
	{"elevation", 1},
	{"height", 1},
	{"agl", 1},
	{"altft", feetToMeters},
	{"altfeet", feetToMeters},
	{"feet", feetToMeters},
	{"altftmsl", feetToMeters},
}

// unitPattern matches a number followed by a unit token at the start of a
// string value, the last-resort altitude source.
var unitPattern = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*(m|meter|meters|km|kilometer|kilometers|ft|feet)\b`)

var timeKeys = []string{"time", "timestamp", "ts", "datetime", "date", "updated"}

var idKeys = []string{"id", "balloonid", "flightid", "deviceid", "serial", "name", "identifier", "uuid"}

// leadingNumber accepts a leading signed decimal when coercing numeric-looking
// strings.
var leadingNumber = regexp.MustCompile(`^[-+]?\d+(?:\.\d+)?`)

// bareNumber requires the whole string to be a signed decimal, used when a
// string timestamp might be a bare epoch.
var bareNumber = regexp.MustCompile(`^[-+]?\d+(?:\.\d+)?$`)
