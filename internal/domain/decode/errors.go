package decode

import "errors"

// Sentinel kinds for decode errors.
var (
	ErrUnparseable = errors.New("no parseable JSON value found")
)
