package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	// Pre-checks in the services are best effort; this is the final arbiter.
	ErrDuplicate = errors.New("duplicate record")
)
