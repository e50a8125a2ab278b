package addressing

import "errors"

// Domain errors for the addressing package.
var (
	// ErrInvalidOptions is returned when the address space options are invalid.
	ErrInvalidOptions = errors.New("addressing: invalid options")

	// ErrNilAssignment is returned when an operation receives a nil assignment.
	ErrNilAssignment = errors.New("addressing: nil assignment")
)
