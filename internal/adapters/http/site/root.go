// Package site serves the embedded constellation viewer frontend.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("viewer site serve failed")
)

// Register attaches the embedded viewer routes to mux. The viewer is served
// at / and talks to the JSON API and the snapshot proxy.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("/", files)
}
