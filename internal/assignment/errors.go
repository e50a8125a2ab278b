package assignment

import "errors"

// Domain errors for the assignment package.
var (
	// ErrTransactionActive is returned by Begin when another transaction is open.
	ErrTransactionActive = errors.New("assignment: transaction already active")

	// ErrTransactionClosed is returned when a committed or rolled back
	// transaction is used.
	ErrTransactionClosed = errors.New("assignment: transaction closed")

	// ErrAssignmentNotFound is returned when an element has no assignment.
	ErrAssignmentNotFound = errors.New("assignment: not found")

	// ErrDuplicateElement is returned when adding an element that already has
	// a live assignment.
	ErrDuplicateElement = errors.New("assignment: element already assigned")

	// ErrRecordMismatch is returned when a device record and its assignment
	// carry different element IDs.
	ErrRecordMismatch = errors.New("assignment: record does not match assignment")

	// ErrInvariantViolation is returned by Commit when the resulting state
	// would break a store invariant. The transaction is rolled back.
	ErrInvariantViolation = errors.New("assignment: invariant violation")
)
