package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("persistence: conflict")
)
