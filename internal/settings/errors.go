package settings

import "errors"

var (
	// ErrNotFound is returned by Load when no record exists for the key.
	ErrNotFound = errors.New("settings: not found")

	// ErrInvalidKey is returned when a key is empty or malformed.
	ErrInvalidKey = errors.New("settings: invalid key")
)
