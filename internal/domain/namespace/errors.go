package namespace

import "errors"

// Sentinel errors for column namespacing.
var (
	ErrUnknownFamily   = errors.New("unknown table family")
	ErrDuplicateFamily = errors.New("duplicate table family")
	ErrEmptyKey        = errors.New("identity key must not be empty")
)
