// Package circuit provides the shared data model for fire alarm circuit design.
//
// Device records describe the electrical and classification attributes of one
// physical device as supplied by an external snapshot provider. Assignments
// place a device on a panel and circuit and give it an address. Loads and
// summaries are always derived from the assignments that currently reference a
// circuit; they are never cached.
//
// # Key Types
//
//   - DeviceRecord: immutable snapshot of one device for the lifetime of a run
//   - Assignment: device → panel → circuit → address placement
//   - LockState: auto, locked or manual address ownership
//   - Load / Summary: computed circuit totals
//   - Issue / Outcome: structured results for expected business-rule failures
//
// # Error Handling
//
// Expected failures (capacity exceeded, no free address block, conflicts) are
// returned as Outcome values carrying Issues with stable codes such as
// CodeAddrConflict or CodeCapCurrentExceeded. Go errors are reserved for
// programming faults such as invalid records:
//
//	if err := circuit.ValidateDeviceRecord(rec); err != nil {
//	    return fmt.Errorf("device %d: %w", rec.ID, err)
//	}
//
// # Unit Loads
//
// One unit load is 0.8 mA of standby current. Isolators and repeaters are fixed
// at 4 unit loads and occupy 2 address slots. A catalog entry for the device
// model overrides the derived values, and an explicit override on the device
// spec wins over both.
package circuit
