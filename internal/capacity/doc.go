// Package capacity provides the Capacity Allocation Engine.
//
// It partitions fire alarm devices into notification circuits that respect two
// electrical limits at once (current and unit loads), each derated by a spare
// capacity fraction, plus a hard device count per circuit and optional mix
// exclusion rules.
//
// # Algorithm
//
// ComputeCircuits is a first-fit grouping, not an optimal bin packer. Devices
// are grouped by a segmentation key (level by default). Within each group the
// devices are taken in input order and added to the open circuit until the next
// device would break a limit; the open circuit is then sealed and a new one
// started with that device. Circuit suffixes (IDNAC-01, IDNAC-02, ...) are
// numbered across the whole run, and sealed circuits are packed onto panels in
// order.
//
// The first-fit behaviour is deliberate: designers must be able to predict
// circuit membership from the device list. Do not replace it with best-fit.
//
// # Validation
//
// ValidateMove gates single device moves, inserts and whole-branch moves with
// the same logic. It sums the moving load with every other device already on
// the target circuit (and panel) and reports each broken limit as an Issue
// whose description names both the attempted and the limiting value:
//
//	outcome := alloc.ValidateMove(capacity.MoveRequest{
//	    Operation:       capacity.OpMove,
//	    TargetCircuitID: "PNL-01-IDNAC-02",
//	    Moving:          []circuit.DeviceRecord{rec},
//	    CircuitMembers:  members,
//	})
//	if !outcome.OK() {
//	    return outcome
//	}
//
// Violations are reported, never corrected by moving devices on the caller's
// behalf.
package capacity
