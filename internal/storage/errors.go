package storage

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by conditional updates when the stored row
	// no longer has the expected version.
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate")
)
