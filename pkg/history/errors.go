package history

import "errors"

var (
	// ErrNotFound is returned when a run does not exist, has been deleted,
	// or belongs to another tenant.
	ErrNotFound = errors.New("run not found")

	// ErrConflict is returned when a run with the given ID already exists.
	ErrConflict = errors.New("run already exists")
)
