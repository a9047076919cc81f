package source

import "errors"

var (
	// ErrHTTPStatus is returned when a page answers with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrSessionClosed is returned by Fetch after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrMissingColumn is returned when a CSV lacks a required column.
	ErrMissingColumn = errors.New("missing csv column")
)
