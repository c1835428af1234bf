package profiler

import "errors"

var (
	// ErrInvalidName is returned by Enter for empty or malformed scope names,
	// including names containing PathSeparator.
	ErrInvalidName = errors.New("invalid scope name")

	// ErrUnbalanced is returned when a guard is ended while a scope it encloses is still open.
	ErrUnbalanced = errors.New("scope ended out of order")

	// ErrForeignGoroutine is returned by owner-checked states used from another goroutine.
	ErrForeignGoroutine = errors.New("profiler state used from a goroutine that does not own it")
)
