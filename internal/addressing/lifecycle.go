package addressing

import (
	"fmt"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Address lifecycle. Lock, Unlock, SetManual and Release are user-driven;
// automated operations only ever act on unassigned and auto devices.
//
//	unassigned -> auto       AutoAssign, GapFill
//	auto       -> locked     Lock
//	any        -> manual     SetManual
//	locked     -> auto       Unlock
//	manual     -> auto       Unlock
//	auto       -> unassigned Release

// Lock pins the target's current address so automated operations leave it
// alone. The device must already hold an address.
func (a *Allocator) Lock(target *circuit.Assignment) (circuit.Outcome, error) {
	if target == nil {
		return circuit.Outcome{}, ErrNilAssignment
	}
	if !target.IsAssigned() {
		return circuit.Failure(circuit.NewIssue(circuit.CodeAddrUnassigned,
			fmt.Sprintf("Device %d has no address to lock", target.ElementID), target.ElementID)), nil
	}
	target.LockState = circuit.LockLocked
	return circuit.Success(), nil
}

// Unlock returns a locked or manual device to auto. Its address is kept until
// the next automated operation moves it.
func (a *Allocator) Unlock(target *circuit.Assignment) error {
	if target == nil {
		return ErrNilAssignment
	}
	target.LockState = circuit.LockAuto
	return nil
}

// SetManual gives the target an address typed in by the user and marks it
// manual. The block must lie inside the address space. Overlaps with other
// devices in the branch are allowed but flagged as conflicts on both sides and
// reported as warnings, pending resolution.
func (a *Allocator) SetManual(branch []*circuit.Assignment, target *circuit.Assignment, address int) (circuit.Outcome, error) {
	if target == nil {
		return circuit.Outcome{}, ErrNilAssignment
	}
	if !circuit.BlockFits(address, target.Slots(), a.opts.Max) {
		return circuit.Failure(circuit.NewIssue(circuit.CodeAddrOutOfRange,
			fmt.Sprintf("Address %d for device %d is outside the address space: needs %d slots within 1-%d",
				address, target.ElementID, target.Slots(), a.opts.Max), target.ElementID)), nil
	}

	target.Address = address
	target.LockState = circuit.LockManual
	target.Conflicted = false

	out := circuit.Success()
	for _, other := range branch {
		if other == nil || other.ElementID == target.ElementID || !target.Overlaps(other) {
			continue
		}
		target.Conflicted = true
		other.Conflicted = true
		out.Add(circuit.NewWarning(circuit.CodeAddrConflict,
			fmt.Sprintf("Manual address %d for device %d overlaps device %d at %d",
				address, target.ElementID, other.ElementID, other.Address),
			target.ElementID, other.ElementID))
	}
	return out, nil
}

// Release clears an auto device's address so it becomes unassigned. Locked and
// manual devices must be unlocked first.
func (a *Allocator) Release(target *circuit.Assignment) (circuit.Outcome, error) {
	if target == nil {
		return circuit.Outcome{}, ErrNilAssignment
	}
	if target.LockState.IsFixed() {
		return circuit.Failure(circuit.NewIssue(circuit.CodeAddrLocked,
			fmt.Sprintf("Device %d address %d is %s; unlock it before releasing",
				target.ElementID, target.Address, target.LockState), target.ElementID)), nil
	}
	target.Address = 0
	target.Conflicted = false
	return circuit.Success(), nil
}
