package snapshot

import "errors"

// Domain errors for the snapshot package.
var (
	// ErrInvalidFile indicates the data is not a readable device snapshot.
	ErrInvalidFile = errors.New("snapshot: invalid device snapshot")

	// ErrFileTooLarge indicates the snapshot exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("snapshot: file exceeds maximum size limit")

	// ErrNoDevices indicates the snapshot lists no devices.
	ErrNoDevices = errors.New("snapshot: no devices found")

	// ErrDuplicateDevice indicates two devices share an ID.
	ErrDuplicateDevice = errors.New("snapshot: duplicate device id")
)
