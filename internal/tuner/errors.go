package tuner

import "errors"

// Domain errors for the tuner package. Check with errors.Is.
var (
	// ErrDeviceNotFound is returned when no device has the given identity.
	ErrDeviceNotFound = errors.New("tuner: device not found")

	// ErrDeviceExists is returned when registering a duplicate identity.
	ErrDeviceExists = errors.New("tuner: device already exists")

	// ErrFrontendNotFound is returned when a device has no frontend at an index.
	ErrFrontendNotFound = errors.New("tuner: frontend not found")

	// ErrInvalidSignalType is returned for an unrecognised signal type label.
	ErrInvalidSignalType = errors.New("tuner: invalid signal type")

	// ErrNotRunning is returned when starting a manager that has shut down.
	ErrNotRunning = errors.New("tuner: manager not running")

	// ErrFrontendInit wraps a tuner unit that could not be opened.
	ErrFrontendInit = errors.New("tuner: frontend initialisation failed")

	// ErrReadOnlyProperty is returned when writing a read-only property.
	ErrReadOnlyProperty = errors.New("tuner: property is read-only")

	// ErrUnknownProperty is returned for a property id that does not exist.
	ErrUnknownProperty = errors.New("tuner: unknown property")

	// ErrStatusUnsupported is returned when a tuner session cannot report status.
	ErrStatusUnsupported = errors.New("tuner: status not supported")
)
