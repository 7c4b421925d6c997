package feature

import "errors"

// Compile and dispatch errors.
var (
	// ErrDuplicateCode is returned by strict compilation when two templates
	// share a code.
	ErrDuplicateCode = errors.New("duplicate feature code")

	// ErrInvalidTemplate is returned when a template is missing a required
	// field.
	ErrInvalidTemplate = errors.New("invalid feature template")

	// ErrUnknownItem is returned when a fixed list cannot resolve the
	// selected item to one of its handlers.
	ErrUnknownItem = errors.New("selected item is not part of the list")
)
