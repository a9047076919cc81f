package queue

import "errors"

var (
	// ErrFull is returned by producers that gave up waiting for room.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned by producers that found the queue closed.
	ErrClosed = errors.New("queue closed")
)
