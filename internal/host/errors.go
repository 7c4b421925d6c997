package host

import "errors"

// Host errors.
var (
	// ErrInvalidFeature is returned for feature metadata that cannot be used.
	ErrInvalidFeature = errors.New("invalid feature")

	// ErrInvalidCmd is returned for a cmd that cannot be parsed or compiled.
	ErrInvalidCmd = errors.New("invalid cmd")

	// ErrUnknownFeature is returned when no compiled entry has the code.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrNoSession is returned when a list operation runs without an open
	// list feature.
	ErrNoSession = errors.New("no open feature")

	// ErrNoSelection is returned when the selected index is not displayed.
	ErrNoSelection = errors.New("no item at index")
)
