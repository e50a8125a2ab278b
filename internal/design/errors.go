package design

import "errors"

// Domain errors for the design package.
//
// Device-level errors come from the assignment and circuit packages and are
// passed through wrapped, so callers can match them with errors.Is.
var (
	// ErrCircuitNotFound is returned when a circuit has no assigned devices.
	ErrCircuitNotFound = errors.New("design: circuit not found")

	// ErrSameCircuit is returned when a device is moved onto its own circuit.
	ErrSameCircuit = errors.New("design: device already on target circuit")

	// ErrSamePanel is returned when a branch is moved onto its own panel.
	ErrSamePanel = errors.New("design: circuit already on target panel")

	// ErrCircuitExists is returned when a branch move would reuse a circuit ID.
	ErrCircuitExists = errors.New("design: target circuit already exists")

	// ErrInvalidPanel is returned when a panel ID cannot form a circuit ID.
	ErrInvalidPanel = errors.New("design: invalid panel id")

	// ErrNoRepository is returned by Restore when no repository is configured.
	ErrNoRepository = errors.New("design: no repository configured")
)
