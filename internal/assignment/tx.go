package assignment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Tx is an open transaction over a Store.
//
// It works on a private copy of the committed state. Reads return copies of
// assignments; only Add, Remove and RegisterModified change what Commit will
// apply. A Tx must not be used after Commit or Rollback.
type Tx struct {
	store *Store
	done  bool

	order       []int64
	assignments map[int64]*circuit.Assignment
	records     map[int64]circuit.DeviceRecord
	metadata    map[int64]circuit.Metadata

	// modified counts registered changes for logging and tests.
	modified int
}

// newTx copies the committed state. The caller holds s.mu.
func newTx(s *Store) *Tx {
	tx := &Tx{
		store:       s,
		order:       append([]int64(nil), s.order...),
		assignments: make(map[int64]*circuit.Assignment, len(s.assignments)),
		records:     make(map[int64]circuit.DeviceRecord, len(s.records)),
		metadata:    make(map[int64]circuit.Metadata, len(s.metadata)),
	}
	for id, a := range s.assignments {
		tx.assignments[id] = a.Clone()
	}
	for id, rec := range s.records {
		tx.records[id] = rec
	}
	for id, md := range s.metadata {
		tx.metadata[id] = md
	}
	return tx
}

// Get returns a copy of the assignment as seen by this transaction.
// Changes to the copy take effect only after RegisterModified.
func (tx *Tx) Get(elementID int64) (*circuit.Assignment, bool) {
	a, ok := tx.assignments[elementID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Record returns the device record for an element.
func (tx *Tx) Record(elementID int64) (circuit.DeviceRecord, bool) {
	rec, ok := tx.records[elementID]
	return rec, ok
}

// List returns copies of every assignment in insertion order.
func (tx *Tx) List() []*circuit.Assignment {
	out := make([]*circuit.Assignment, 0, len(tx.order))
	for _, id := range tx.order {
		out = append(out, tx.assignments[id].Clone())
	}
	return out
}

// Branch returns copies of the assignments on one circuit in insertion order.
func (tx *Tx) Branch(circuitID string) []*circuit.Assignment {
	return branchOf(tx.order, tx.assignments, circuitID)
}

// Circuits returns the sorted IDs of every circuit in the transaction view.
func (tx *Tx) Circuits() []string {
	return circuitsOf(tx.assignments)
}

// CircuitRecords returns the device records on a circuit.
func (tx *Tx) CircuitRecords(circuitID string) []circuit.DeviceRecord {
	return recordsWhere(tx.order, tx.assignments, tx.records, func(a *circuit.Assignment) bool {
		return a.CircuitID == circuitID
	})
}

// PanelRecords returns the device records on a panel.
func (tx *Tx) PanelRecords(panelID string) []circuit.DeviceRecord {
	return recordsWhere(tx.order, tx.assignments, tx.records, func(a *circuit.Assignment) bool {
		return a.PanelID == panelID
	})
}

// Add stages a new assignment together with its device record and optional
// metadata.
//
// Returns:
//   - error: ErrDuplicateElement if the element is already assigned,
//     ErrRecordMismatch if the IDs differ, or a validation error
func (tx *Tx) Add(rec circuit.DeviceRecord, a *circuit.Assignment, md circuit.Metadata) error {
	if tx.done {
		return ErrTransactionClosed
	}
	if err := circuit.ValidateAssignment(a); err != nil {
		return err
	}
	if err := circuit.ValidateDeviceRecord(rec); err != nil {
		return err
	}
	if rec.ID != a.ElementID {
		return fmt.Errorf("%w: record %d, assignment %d", ErrRecordMismatch, rec.ID, a.ElementID)
	}
	if _, exists := tx.assignments[a.ElementID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateElement, a.ElementID)
	}

	tx.order = append(tx.order, a.ElementID)
	tx.assignments[a.ElementID] = a.Clone()
	tx.records[a.ElementID] = rec
	if len(md) > 0 {
		tx.metadata[a.ElementID] = md.Clone()
	}
	tx.modified++
	return nil
}

// Remove stages the removal of an element's assignment, record and metadata.
func (tx *Tx) Remove(elementID int64) error {
	if tx.done {
		return ErrTransactionClosed
	}
	if _, ok := tx.assignments[elementID]; !ok {
		return fmt.Errorf("%w: %d", ErrAssignmentNotFound, elementID)
	}

	delete(tx.assignments, elementID)
	delete(tx.records, elementID)
	delete(tx.metadata, elementID)
	for i, id := range tx.order {
		if id == elementID {
			tx.order = append(tx.order[:i], tx.order[i+1:]...)
			break
		}
	}
	tx.modified++
	return nil
}

// Clear stages the removal of every assignment.
func (tx *Tx) Clear() {
	if tx.done {
		return
	}
	tx.order = nil
	tx.assignments = make(map[int64]*circuit.Assignment)
	tx.records = make(map[int64]circuit.DeviceRecord)
	tx.metadata = make(map[int64]circuit.Metadata)
	tx.modified++
}

// RegisterModified stages a changed copy of an existing assignment.
// The element ID must already be assigned and the copy must be valid.
func (tx *Tx) RegisterModified(a *circuit.Assignment) error {
	if tx.done {
		return ErrTransactionClosed
	}
	if err := circuit.ValidateAssignment(a); err != nil {
		return err
	}
	if _, ok := tx.assignments[a.ElementID]; !ok {
		return fmt.Errorf("%w: %d", ErrAssignmentNotFound, a.ElementID)
	}
	tx.assignments[a.ElementID] = a.Clone()
	tx.modified++
	return nil
}

// Modified returns the number of staged changes.
func (tx *Tx) Modified() int {
	return tx.modified
}

// Commit verifies the store invariants over the transaction view and applies
// it. On failure the transaction is rolled back and an error wrapping
// ErrInvariantViolation is returned.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTransactionClosed
	}

	if err := tx.verify(); err != nil {
		tx.Rollback()
		return err
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = tx.order
	s.assignments = tx.assignments
	s.records = tx.records
	s.metadata = tx.metadata
	s.active = nil
	tx.done = true
	return nil
}

// Rollback discards every staged change. It is safe to call more than once.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == tx {
		s.active = nil
	}
}

// verify checks address range and overlap invariants per circuit.
func (tx *Tx) verify() error {
	var problems []string
	maxAddr := tx.store.maxAddress

	byCircuit := make(map[string][]*circuit.Assignment)
	for _, id := range tx.order {
		a := tx.assignments[id]
		if a.IsAssigned() && maxAddr > 0 && !a.FitsWithin(maxAddr) {
			problems = append(problems, fmt.Sprintf("element %d block of %d slots at %d exceeds max address %d",
				a.ElementID, a.Slots(), a.Address, maxAddr))
		}
		byCircuit[a.CircuitID] = append(byCircuit[a.CircuitID], a)
	}

	circuits := make([]string, 0, len(byCircuit))
	for id := range byCircuit {
		circuits = append(circuits, id)
	}
	sort.Strings(circuits)

	for _, cid := range circuits {
		branch := byCircuit[cid]
		for i := 0; i < len(branch); i++ {
			for j := i + 1; j < len(branch); j++ {
				a, b := branch[i], branch[j]
				if a.Overlaps(b) && !(a.Conflicted && b.Conflicted) {
					problems = append(problems, fmt.Sprintf("elements %d and %d overlap on %s without a conflict flag",
						a.ElementID, b.ElementID, cid))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvariantViolation, strings.Join(problems, "; "))
	}
	return nil
}
