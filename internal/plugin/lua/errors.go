package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script or callback runs past
	// the state's execution timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotTable is returned when a table was expected.
	ErrNotTable = errors.New("lua value is not a table")
)
