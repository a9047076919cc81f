package projection

import "errors"

// ErrMissingMinutes means the table has no minutes-played column to filter on.
var ErrMissingMinutes = errors.New("minutes column missing")
