// Package addressing provides the Address Allocation Engine.
//
// Every circuit has a finite address space [1, Max]. A device occupies
// AddressSlots consecutive addresses starting at its Address; isolators and
// repeaters take two. The Allocator assigns, compacts, gap-fills, validates and
// repairs addresses over one branch (the devices of one circuit), respecting
// each assignment's lock state:
//
//   - auto: owned by the engine, may be moved by any automated operation
//   - locked: pinned by the user, never moved automatically
//   - manual: typed in by the user, never moved automatically
//
// Operations mutate the assignments they are given in place and report every
// address change, so callers can register the changes with a transaction.
// Processing order is the slice order supplied by the caller (ascending
// current address for Resequence) and the results are deterministic for a
// given order.
//
// Expected failures such as "no contiguous free block" are returned as
// circuit.Issue values, never as errors.
package addressing
