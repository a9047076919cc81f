package table

import "errors"

// ErrAbsent reports a table that was not found or carries no header.
var ErrAbsent = errors.New("table absent")
