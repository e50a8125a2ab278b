// Package assignment provides the AssignmentStore: the single mutable
// collection of device assignments (device → panel → circuit → address) that
// the capacity and addressing engines read and write.
//
// # Transactions
//
// Every multi-step mutation runs inside a transaction. Reads inside a
// transaction return copies; a changed copy only takes effect once it is passed
// to RegisterModified, and nothing reaches the committed state until Commit.
// Commit verifies the store invariants before applying:
//
//   - at most one assignment per element ID
//   - no two assignments on a circuit overlap unless both are flagged
//     Conflicted (pending resolution)
//   - every assigned block lies within [1, address space max]
//
// A failed Commit rolls back. Update wraps a function in a transaction and
// rolls back on error or panic:
//
//	err := store.Update(func(tx *assignment.Tx) error {
//	    a, ok := tx.Get(id)
//	    if !ok {
//	        return assignment.ErrAssignmentNotFound
//	    }
//	    a.LockState = circuit.LockLocked
//	    return tx.RegisterModified(a)
//	})
//
// # Concurrency
//
// Only one transaction may be open at a time; Begin returns
// ErrTransactionActive otherwise. Callers must still serialise their
// validate-then-mutate sequences (the design service does this with a mutex).
// The read API is safe for concurrent use.
//
// # Persistence
//
// SQLiteRepository saves and loads a Snapshot of the committed state.
package assignment
