package capacity

import "errors"

// Domain errors for the capacity package.
var (
	// ErrInvalidConfiguration is returned when a Configuration fails validation.
	// Configuration errors are fatal and reported before any allocation runs.
	ErrInvalidConfiguration = errors.New("capacity: invalid configuration")
)
