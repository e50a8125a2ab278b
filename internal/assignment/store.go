package assignment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Snapshot is a detached copy of the committed store contents, in
// assignment insertion order.
type Snapshot struct {
	Records     []circuit.DeviceRecord     `json:"records"`
	Assignments []circuit.Assignment       `json:"assignments"`
	Metadata    map[int64]circuit.Metadata `json:"metadata,omitempty"`
}

// Store holds the committed assignments, their device records and the
// metadata side-table. Construct one per design with NewStore and pass it
// explicitly; there is no package-level instance.
type Store struct {
	mu sync.RWMutex

	maxAddress  int
	order       []int64
	assignments map[int64]*circuit.Assignment
	records     map[int64]circuit.DeviceRecord
	metadata    map[int64]circuit.Metadata

	active *Tx
}

// NewStore creates an empty store whose circuits share an address space of
// 1..maxAddress.
func NewStore(maxAddress int) *Store {
	return &Store{
		maxAddress:  maxAddress,
		assignments: make(map[int64]*circuit.Assignment),
		records:     make(map[int64]circuit.DeviceRecord),
		metadata:    make(map[int64]circuit.Metadata),
	}
}

// MaxAddress returns the highest valid address.
func (s *Store) MaxAddress() int {
	return s.maxAddress
}

// Begin opens a transaction against the committed state.
//
// Returns:
//   - *Tx: the open transaction
//   - error: ErrTransactionActive if one is already open
func (s *Store) Begin() (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, ErrTransactionActive
	}
	tx := newTx(s)
	s.active = tx
	return tx, nil
}

// Update runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; a panic is
// re-raised after the rollback.
func (s *Store) Update(fn func(tx *Tx) error) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Get returns a copy of the committed assignment for an element.
func (s *Store) Get(elementID int64) (*circuit.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[elementID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// List returns copies of every committed assignment in insertion order.
func (s *Store) List() []*circuit.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*circuit.Assignment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.assignments[id].Clone())
	}
	return out
}

// Branch returns copies of the committed assignments on one circuit, in
// insertion order.
func (s *Store) Branch(circuitID string) []*circuit.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return branchOf(s.order, s.assignments, circuitID)
}

// Circuits returns the sorted IDs of every circuit with at least one assignment.
func (s *Store) Circuits() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return circuitsOf(s.assignments)
}

// Panels returns the sorted IDs of every panel with at least one assignment.
func (s *Store) Panels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return panelsOf(s.assignments)
}

// Record returns the device record for an element.
func (s *Store) Record(elementID int64) (circuit.DeviceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[elementID]
	return rec, ok
}

// CircuitRecords returns the device records assigned to a circuit.
func (s *Store) CircuitRecords(circuitID string) []circuit.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordsWhere(s.order, s.assignments, s.records, func(a *circuit.Assignment) bool {
		return a.CircuitID == circuitID
	})
}

// PanelRecords returns the device records assigned to a panel.
func (s *Store) PanelRecords(panelID string) []circuit.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordsWhere(s.order, s.assignments, s.records, func(a *circuit.Assignment) bool {
		return a.PanelID == panelID
	})
}

// Metadata returns a copy of the vendor metadata for an element.
func (s *Store) Metadata(elementID int64) circuit.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata[elementID].Clone()
}

// Len returns the number of committed assignments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a detached copy of the committed state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Records:     make([]circuit.DeviceRecord, 0, len(s.order)),
		Assignments: make([]circuit.Assignment, 0, len(s.order)),
		Metadata:    make(map[int64]circuit.Metadata, len(s.metadata)),
	}
	for _, id := range s.order {
		snap.Records = append(snap.Records, s.records[id])
		snap.Assignments = append(snap.Assignments, *s.assignments[id])
	}
	for id, md := range s.metadata {
		snap.Metadata[id] = md.Clone()
	}
	return snap
}

// Restore replaces the committed state with a snapshot in one transaction.
// The snapshot must satisfy the same invariants as any commit.
func (s *Store) Restore(snap Snapshot) error {
	records := make(map[int64]circuit.DeviceRecord, len(snap.Records))
	for _, rec := range snap.Records {
		records[rec.ID] = rec
	}

	return s.Update(func(tx *Tx) error {
		tx.Clear()
		for i := range snap.Assignments {
			a := snap.Assignments[i]
			rec, ok := records[a.ElementID]
			if !ok {
				return fmt.Errorf("%w: no record for element %d", ErrRecordMismatch, a.ElementID)
			}
			if err := tx.Add(rec, &a, snap.Metadata[a.ElementID]); err != nil {
				return err
			}
		}
		return nil
	})
}

// branchOf returns clones of the assignments on one circuit in order.
func branchOf(order []int64, assignments map[int64]*circuit.Assignment, circuitID string) []*circuit.Assignment {
	var out []*circuit.Assignment
	for _, id := range order {
		if a := assignments[id]; a.CircuitID == circuitID {
			out = append(out, a.Clone())
		}
	}
	return out
}

func circuitsOf(assignments map[int64]*circuit.Assignment) []string {
	seen := make(map[string]struct{})
	for _, a := range assignments {
		seen[a.CircuitID] = struct{}{}
	}
	return sortedKeys(seen)
}

func panelsOf(assignments map[int64]*circuit.Assignment) []string {
	seen := make(map[string]struct{})
	for _, a := range assignments {
		seen[a.PanelID] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func recordsWhere(order []int64, assignments map[int64]*circuit.Assignment, records map[int64]circuit.DeviceRecord, match func(*circuit.Assignment) bool) []circuit.DeviceRecord {
	var out []circuit.DeviceRecord
	for _, id := range order {
		if match(assignments[id]) {
			out = append(out, records[id])
		}
	}
	return out
}
