package export

import "errors"

// ErrBadHeader is returned when a CSV input is missing interchange columns.
var ErrBadHeader = errors.New("csv header missing interchange column")
