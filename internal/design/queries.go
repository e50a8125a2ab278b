package design

import (
	"fmt"

	"github.com/nerrad567/gray-logic-firealarm/internal/addressing"
	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// view is the read surface shared by the committed store and an open
// transaction.
type view interface {
	Circuits() []string
	Branch(circuitID string) []*circuit.Assignment
	CircuitRecords(circuitID string) []circuit.DeviceRecord
}

// Detail is one device with its assignment and metadata.
type Detail struct {
	Assignment circuit.Assignment   `json:"assignment"`
	Device     circuit.DeviceRecord `json:"device"`
	Metadata   circuit.Metadata     `json:"metadata,omitempty"`
}

// CircuitReport combines the load summary, the capacity check and the
// addressing validation of one circuit.
type CircuitReport struct {
	Summary    circuit.Summary   `json:"summary"`
	Capacity   circuit.Outcome   `json:"capacity"`
	Addressing addressing.Report `json:"addressing"`
	Valid      bool              `json:"valid"`
}

// Report is the validation of the whole design.
type Report struct {
	Circuits []CircuitReport `json:"circuits"`
	Panels   circuit.Outcome `json:"panels"`
	Valid    bool            `json:"valid"`
}

// Assignments returns every committed assignment in insertion order.
func (s *Service) Assignments() []circuit.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.store.List()
	out := make([]circuit.Assignment, len(list))
	for i, a := range list {
		out[i] = *a
	}
	return out
}

// Assignment returns one device with its assignment and metadata.
//
// Returns:
//   - Detail: the device
//   - error: wrapping assignment.ErrAssignmentNotFound if it is not assigned
func (s *Service) Assignment(elementID int64) (Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.store.Get(elementID)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %d", assignment.ErrAssignmentNotFound, elementID)
	}
	rec, _ := s.store.Record(elementID)
	return Detail{
		Assignment: *a,
		Device:     rec,
		Metadata:   s.store.Metadata(elementID),
	}, nil
}

// Summaries returns the load summary of every circuit, sorted by circuit ID.
func (s *Service) Summaries() []circuit.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summariesOf(s.store, s.store.Circuits())
}

// Validate checks one circuit's load and addressing.
//
// Returns:
//   - CircuitReport: the findings; Valid is false when anything is wrong
//   - error: ErrCircuitNotFound if the circuit has no devices
func (s *Service) Validate(circuitID string) (CircuitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	branch := s.store.Branch(circuitID)
	if len(branch) == 0 {
		return CircuitReport{}, fmt.Errorf("%w: %s", ErrCircuitNotFound, circuitID)
	}
	return s.circuitReport(circuitID, branch), nil
}

// ValidateAll checks every circuit and every panel.
func (s *Service) ValidateAll() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{Valid: true}
	for _, cid := range s.store.Circuits() {
		cr := s.circuitReport(cid, s.store.Branch(cid))
		report.Circuits = append(report.Circuits, cr)
		if !cr.Valid {
			report.Valid = false
		}
	}
	for _, panelID := range s.store.Panels() {
		report.Panels.Merge(s.capacity.CheckPanel(panelID, s.store.PanelRecords(panelID)))
	}
	if !report.Panels.OK() {
		report.Valid = false
	}
	return report
}

func (s *Service) circuitReport(circuitID string, branch []*circuit.Assignment) CircuitReport {
	members := s.store.CircuitRecords(circuitID)
	cr := CircuitReport{
		Summary:    s.capacity.Summarise(circuitID, branch[0].PanelID, members),
		Capacity:   s.capacity.CheckCircuit(circuitID, members),
		Addressing: s.addresses.Validate(branch),
	}
	cr.Valid = cr.Capacity.OK() && cr.Addressing.Valid
	return cr
}

// summariesOf summarises the listed circuits that still hold devices.
func (s *Service) summariesOf(v view, circuitIDs []string) []circuit.Summary {
	out := make([]circuit.Summary, 0, len(circuitIDs))
	for _, cid := range circuitIDs {
		branch := v.Branch(cid)
		if len(branch) == 0 {
			continue
		}
		out = append(out, s.capacity.Summarise(cid, branch[0].PanelID, v.CircuitRecords(cid)))
	}
	return out
}

// Size counts the committed circuits, panels and devices.
func (s *Service) Size() DesignSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size()
}
