package design

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-firealarm/internal/addressing"
	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/capacity"
	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// MoveDevice relocates one device onto another existing circuit.
//
// The move is checked against the target circuit and panel first. The device
// arrives as auto and takes the lowest free block on the target; when no block
// fits the move is rejected with ADDR_NO_BLOCK.
func (s *Service) MoveDevice(ctx context.Context, elementID int64, targetCircuitID string) (Result, error) {
	return s.edit(ctx, OpMoveDevice, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		if a.CircuitID == targetCircuitID {
			return fmt.Errorf("%w: device %d on %s", ErrSameCircuit, elementID, targetCircuitID)
		}
		target := tx.Branch(targetCircuitID)
		if len(target) == 0 {
			return fmt.Errorf("%w: %s", ErrCircuitNotFound, targetCircuitID)
		}
		targetPanel := target[0].PanelID
		rec, _ := tx.Record(elementID)

		res.Outcome = s.capacity.ValidateMove(capacity.MoveRequest{
			Operation:       capacity.OpMove,
			TargetCircuitID: targetCircuitID,
			TargetPanelID:   targetPanel,
			Moving:          []circuit.DeviceRecord{rec},
			CircuitMembers:  tx.CircuitRecords(targetCircuitID),
			PanelMembers:    tx.PanelRecords(targetPanel),
		})
		if !res.Outcome.OK() {
			return nil
		}

		addr, out := s.addresses.FirstAvailable(target, a)
		if !out.OK() {
			res.Outcome.Merge(out)
			return nil
		}

		source := a.CircuitID
		res.Changes = append(res.Changes, addressing.Change{ElementID: elementID, OldAddress: a.Address, NewAddress: addr})
		a.CircuitID = targetCircuitID
		a.PanelID = targetPanel
		a.Address = addr
		a.LockState = circuit.LockAuto
		a.Conflicted = false
		if err := tx.RegisterModified(a); err != nil {
			return err
		}

		res.Circuits = []string{source, targetCircuitID}
		return s.stageCircuits(tx, res.Circuits...)
	})
}

// MoveBranch moves every device on a circuit onto another panel.
//
// The circuit keeps its suffix and becomes "{targetPanel}-{suffix}". Addresses
// and lock states travel with the devices. The whole branch is checked against
// the target panel's current limit before anything moves.
func (s *Service) MoveBranch(ctx context.Context, circuitID, targetPanelID string) (Result, error) {
	return s.edit(ctx, OpMoveBranch, false, func(tx *assignment.Tx, res *Result) error {
		branch := tx.Branch(circuitID)
		if len(branch) == 0 {
			return fmt.Errorf("%w: %s", ErrCircuitNotFound, circuitID)
		}
		sourcePanel := branch[0].PanelID
		if sourcePanel == targetPanelID {
			return fmt.Errorf("%w: %s on %s", ErrSamePanel, circuitID, targetPanelID)
		}

		prefix, err := circuit.PanelOf(circuitID)
		if err != nil {
			return err
		}
		newID := circuit.CircuitID(targetPanelID, circuitID[len(prefix)+1:])
		if panel, err := circuit.PanelOf(newID); err != nil || panel != targetPanelID {
			return fmt.Errorf("%w: %q", ErrInvalidPanel, targetPanelID)
		}
		if len(tx.Branch(newID)) > 0 {
			return fmt.Errorf("%w: %s", ErrCircuitExists, newID)
		}

		res.Outcome = s.capacity.ValidateMove(capacity.MoveRequest{
			Operation:       capacity.OpBranchMove,
			TargetCircuitID: newID,
			TargetPanelID:   targetPanelID,
			Moving:          tx.CircuitRecords(circuitID),
			PanelMembers:    tx.PanelRecords(targetPanelID),
		})
		if !res.Outcome.OK() {
			return nil
		}

		for _, a := range branch {
			a.CircuitID = newID
			a.PanelID = targetPanelID
			if err := tx.RegisterModified(a); err != nil {
				return err
			}
		}
		res.Circuits = []string{circuitID, newID}
		return nil
	})
}

// InsertDevice adds a new device to an existing circuit at the lowest free
// block, after checking the circuit and panel can carry its load.
//
// Returns:
//   - Result: rejected with DEVICE_INELIGIBLE, a capacity issue or
//     ADDR_NO_BLOCK when the device cannot be placed
//   - error: wrapping circuit.ErrInvalidDevice, ErrCircuitNotFound or
//     assignment.ErrDuplicateElement
func (s *Service) InsertDevice(ctx context.Context, rec circuit.DeviceRecord, md circuit.Metadata, circuitID string) (Result, error) {
	return s.edit(ctx, OpInsertDevice, false, func(tx *assignment.Tx, res *Result) error {
		if err := circuit.ValidateDeviceRecord(rec); err != nil {
			return err
		}
		if _, exists := tx.Record(rec.ID); exists {
			return fmt.Errorf("%w: %d", assignment.ErrDuplicateElement, rec.ID)
		}
		branch := tx.Branch(circuitID)
		if len(branch) == 0 {
			return fmt.Errorf("%w: %s", ErrCircuitNotFound, circuitID)
		}
		panelID := branch[0].PanelID

		if !rec.Eligible() {
			res.Outcome.Add(circuit.NewIssue(circuit.CodeDeviceIneligible,
				fmt.Sprintf("Device %d has no current draw or wattage and cannot be inserted", rec.ID), rec.ID))
			return nil
		}

		res.Outcome = s.capacity.ValidateMove(capacity.MoveRequest{
			Operation:       capacity.OpInsert,
			TargetCircuitID: circuitID,
			TargetPanelID:   panelID,
			Moving:          []circuit.DeviceRecord{rec},
			CircuitMembers:  tx.CircuitRecords(circuitID),
			PanelMembers:    tx.PanelRecords(panelID),
		})
		if !res.Outcome.OK() {
			return nil
		}

		a := circuit.NewAssignment(rec, panelID, circuitID)
		addr, out := s.addresses.FirstAvailable(branch, a)
		if !out.OK() {
			res.Outcome.Merge(out)
			return nil
		}
		a.Address = addr
		if err := tx.Add(rec, a, md); err != nil {
			return err
		}

		res.Changes = append(res.Changes, addressing.Change{ElementID: rec.ID, NewAddress: addr})
		res.Circuits = []string{circuitID}
		return nil
	})
}

// RemoveDevice deletes a device from the design. Conflict flags on its
// former circuit are recomputed.
func (s *Service) RemoveDevice(ctx context.Context, elementID int64) (Result, error) {
	return s.edit(ctx, OpRemoveDevice, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		if err := tx.Remove(elementID); err != nil {
			return err
		}
		if a.IsAssigned() {
			res.Changes = append(res.Changes, addressing.Change{ElementID: elementID, OldAddress: a.Address})
		}
		res.Circuits = []string{a.CircuitID}
		return s.stageCircuits(tx, a.CircuitID)
	})
}

// branchOp runs one addressing operation over a whole circuit.
func (s *Service) branchOp(ctx context.Context, op, circuitID string, partial bool, apply func([]*circuit.Assignment) addressing.Result) (Result, error) {
	return s.edit(ctx, op, partial, func(tx *assignment.Tx, res *Result) error {
		branch := tx.Branch(circuitID)
		if len(branch) == 0 {
			return fmt.Errorf("%w: %s", ErrCircuitNotFound, circuitID)
		}

		out := apply(branch)
		res.Outcome = out.Outcome()
		res.Changes = out.Changes
		res.Circuits = []string{circuitID}
		return s.stage(tx, branch)
	})
}

// AutoAssign addresses every unassigned device on the circuit. Devices that
// find no block are reported; the rest are committed.
func (s *Service) AutoAssign(ctx context.Context, circuitID string) (Result, error) {
	return s.branchOp(ctx, OpAutoAssign, circuitID, true, s.addresses.AutoAssign)
}

// GapFill places unassigned devices into the lowest gaps on the circuit.
func (s *Service) GapFill(ctx context.Context, circuitID string) (Result, error) {
	return s.branchOp(ctx, OpGapFill, circuitID, true, s.addresses.GapFill)
}

// Resequence compacts the auto addresses on the circuit. Nothing changes
// unless every auto device can be placed.
func (s *Service) Resequence(ctx context.Context, circuitID string) (Result, error) {
	return s.branchOp(ctx, OpResequence, circuitID, false, s.addresses.Resequence)
}

// ResolveConflicts moves auto devices out of overlapping blocks. Conflicts
// between locked or manual devices stay flagged and are reported as errors.
func (s *Service) ResolveConflicts(ctx context.Context, circuitID string) (Result, error) {
	return s.branchOp(ctx, OpResolveConflicts, circuitID, true, s.addresses.ResolveConflicts)
}

// LockAddress pins a device's current address.
func (s *Service) LockAddress(ctx context.Context, elementID int64) (Result, error) {
	return s.edit(ctx, OpLockAddress, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		out, err := s.addresses.Lock(a)
		if err != nil {
			return err
		}
		res.Outcome = out
		if !out.OK() {
			return nil
		}
		res.Circuits = []string{a.CircuitID}
		return tx.RegisterModified(a)
	})
}

// UnlockAddress returns a locked or manual device to auto. Its address is
// kept until an automated operation moves it.
func (s *Service) UnlockAddress(ctx context.Context, elementID int64) (Result, error) {
	return s.edit(ctx, OpUnlockAddress, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		if err := s.addresses.Unlock(a); err != nil {
			return err
		}
		res.Circuits = []string{a.CircuitID}
		return tx.RegisterModified(a)
	})
}

// SetManualAddress gives a device a user-chosen address and marks it manual.
// Overlaps are accepted, flagged on both devices and returned as warnings.
func (s *Service) SetManualAddress(ctx context.Context, elementID int64, address int) (Result, error) {
	return s.edit(ctx, OpSetManualAddress, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		branch := tx.Branch(a.CircuitID)
		target := find(branch, elementID)

		old := target.Address
		out, err := s.addresses.SetManual(branch, target, address)
		if err != nil {
			return err
		}
		res.Outcome = out
		if !out.OK() {
			return nil
		}

		if old != address {
			res.Changes = append(res.Changes, addressing.Change{ElementID: elementID, OldAddress: old, NewAddress: address})
		}
		res.Circuits = []string{a.CircuitID}
		return s.stage(tx, branch)
	})
}

// ReleaseAddress clears an auto device's address. Locked and manual devices
// are rejected with ADDR_LOCKED.
func (s *Service) ReleaseAddress(ctx context.Context, elementID int64) (Result, error) {
	return s.edit(ctx, OpReleaseAddress, false, func(tx *assignment.Tx, res *Result) error {
		a, err := getAssignment(tx, elementID)
		if err != nil {
			return err
		}
		branch := tx.Branch(a.CircuitID)
		target := find(branch, elementID)

		old := target.Address
		out, err := s.addresses.Release(target)
		if err != nil {
			return err
		}
		res.Outcome = out
		if !out.OK() {
			return nil
		}

		if old != 0 {
			res.Changes = append(res.Changes, addressing.Change{ElementID: elementID, OldAddress: old})
		}
		res.Circuits = []string{a.CircuitID}
		return s.stage(tx, branch)
	})
}

// stage recomputes conflict flags on the branch and registers every
// assignment that differs from the transaction's copy.
func (s *Service) stage(tx *assignment.Tx, branch []*circuit.Assignment) error {
	s.addresses.MarkConflicts(branch)
	for _, a := range branch {
		if prev, ok := tx.Get(a.ElementID); ok && *prev == *a {
			continue
		}
		if err := tx.RegisterModified(a); err != nil {
			return err
		}
	}
	return nil
}

// stageCircuits restages the conflict flags of each named circuit.
func (s *Service) stageCircuits(tx *assignment.Tx, circuitIDs ...string) error {
	for _, cid := range circuitIDs {
		if err := s.stage(tx, tx.Branch(cid)); err != nil {
			return err
		}
	}
	return nil
}

func getAssignment(tx *assignment.Tx, elementID int64) (*circuit.Assignment, error) {
	a, ok := tx.Get(elementID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", assignment.ErrAssignmentNotFound, elementID)
	}
	return a, nil
}

// find returns the branch entry for elementID. The caller knows it exists.
func find(branch []*circuit.Assignment, elementID int64) *circuit.Assignment {
	for _, a := range branch {
		if a.ElementID == elementID {
			return a
		}
	}
	return nil
}
