package upstream

import "errors"

// Sentinel kinds for upstream errors.
var (
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")
	ErrFeedShape      = errors.New("live feed payload has no usable positions")
)
