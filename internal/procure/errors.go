package procure

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")

	// ErrCorruptRecord marks a stored item that no longer parses into its
	// entity (for example an enum value outside the closed set). The value
	// came from the store, not the caller, so it maps to an internal error.
	ErrCorruptRecord = errors.New("corrupt record")
)
