package idgen

import "errors"

// Common errors for ID generation.
var (
	// ErrInvalidInstanceID is returned when the instance ID is out of
	// valid range (0-1023, 10 bits).
	ErrInvalidInstanceID = errors.New("instance ID must be between 0 and 1023")

	// ErrClockMovedBackwards is returned when the system clock moves
	// backwards relative to the last timestamp the generator observed.
	// The generator's internal state is left untouched; the caller's
	// request fails but the generator remains usable for the next call.
	ErrClockMovedBackwards = errors.New("clock moved backwards, refusing to generate ID")
)
