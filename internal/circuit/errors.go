package circuit

import "errors"

// Domain errors for the circuit package.
//
// These signal programming faults (invalid arguments), not business-rule
// failures. Business-rule failures are reported through Outcome.
var (
	// ErrInvalidDevice is returned when a device record fails validation.
	ErrInvalidDevice = errors.New("circuit: invalid device record")

	// ErrInvalidAssignment is returned when an assignment fails validation.
	ErrInvalidAssignment = errors.New("circuit: invalid assignment")

	// ErrInvalidLockState is returned when a lock state value is not recognised.
	ErrInvalidLockState = errors.New("circuit: invalid lock state")

	// ErrInvalidCircuitID is returned when a circuit ID does not follow "{panel}-{suffix}".
	ErrInvalidCircuitID = errors.New("circuit: invalid circuit id")
)
