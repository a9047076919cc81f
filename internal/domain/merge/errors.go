package merge

import "errors"

// Sentinel errors for the wide record merge.
var (
	// ErrMissingAnchor means the primary table is absent or empty; no row can be built.
	ErrMissingAnchor = errors.New("primary table missing")
	// ErrMissingKey means the primary table lacks an identity key column.
	ErrMissingKey = errors.New("identity key column missing")
	// ErrColumnCollision means a side column would overwrite an existing one.
	ErrColumnCollision = errors.New("column collision")
)
