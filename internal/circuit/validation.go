package circuit

import (
	"fmt"
	"math"
)

// maxAddressSlots bounds the slot count of a single device.
const maxAddressSlots = 8

// ValidateDeviceRecord checks a record for programming-level faults.
// Ineligibility (no load) is a business rule and is not checked here.
func ValidateDeviceRecord(rec DeviceRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidDevice, rec.ID)
	}
	if !finite(rec.CurrentDrawA) {
		return fmt.Errorf("%w: current draw must be a finite number", ErrInvalidDevice)
	}
	if rec.CurrentDrawA < 0 {
		return fmt.Errorf("%w: current draw must not be negative", ErrInvalidDevice)
	}
	if !finite(rec.WattageW) {
		return fmt.Errorf("%w: wattage must be a finite number", ErrInvalidDevice)
	}
	if rec.WattageW < 0 {
		return fmt.Errorf("%w: wattage must not be negative", ErrInvalidDevice)
	}
	if rec.UnitLoads < 1 {
		return fmt.Errorf("%w: unit loads must be at least 1", ErrInvalidDevice)
	}
	if rec.AddressSlots < 1 || rec.AddressSlots > maxAddressSlots {
		return fmt.Errorf("%w: address slots must be 1..%d", ErrInvalidDevice, maxAddressSlots)
	}
	return nil
}

// ValidateAssignment checks an assignment for programming-level faults.
// Address range against the configured space is an addressing concern.
func ValidateAssignment(a *Assignment) error {
	if a == nil {
		return ErrInvalidAssignment
	}
	if a.ElementID <= 0 {
		return fmt.Errorf("%w: element id must be positive", ErrInvalidAssignment)
	}
	if a.CircuitID == "" {
		return fmt.Errorf("%w: circuit id is required", ErrInvalidAssignment)
	}
	if a.Address < 0 {
		return fmt.Errorf("%w: address must not be negative", ErrInvalidAssignment)
	}
	if a.AddressSlots < 1 || a.AddressSlots > maxAddressSlots {
		return fmt.Errorf("%w: address slots must be 1..%d", ErrInvalidAssignment, maxAddressSlots)
	}
	if !a.LockState.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLockState, a.LockState)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
