package resolve

import "errors"

// ErrEmptyPool means there are no candidates to match against.
var ErrEmptyPool = errors.New("empty candidate pool")
