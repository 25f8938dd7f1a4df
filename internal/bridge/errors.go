package bridge

import "errors"

// Domain errors for the tuner bridge.
var (
	// ErrInvalidCommand is returned when a command payload cannot be parsed
	// or carries nothing to do.
	ErrInvalidCommand = errors.New("bridge: invalid command")

	// ErrMissingDependency is returned by New when a required collaborator
	// is nil.
	ErrMissingDependency = errors.New("bridge: missing dependency")
)
