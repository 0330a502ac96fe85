package testfeed

import (
	"net/http"
	"regexp"
	"strconv"
)

var hourPath = regexp.MustCompile(`^/(\d{2})\.json$`)

// Handler serves the generator as an upstream-shaped feed: GET /NN.json for
// hours 00 through 23, anything else 404.
func Handler(g *Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		m := hourPath.FindStringSubmatch(r.URL.Path)
		if m == nil {
			http.NotFound(w, r)
			return
		}
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			http.NotFound(w, r)
			return
		}
		// The real feed serves JSON bodies without a content type worth
		// trusting; mirror that so clients cannot cheat.
		_, _ = w.Write([]byte(g.Body(hour)))
	})
}
