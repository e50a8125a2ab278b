package design

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/capacity"
	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// RunResult is the outcome of a full design run.
type RunResult struct {
	ID        string            `json:"id"`
	Plan      capacity.Plan     `json:"plan"`
	Summaries []circuit.Summary `json:"summaries"`
	Issues    []circuit.Issue   `json:"issues,omitempty"`
}

// Run replaces the design with a fresh one computed from devices.
//
// Devices are grouped into circuits first-fit, every circuit is auto-addressed
// from the start of the address space, and the result is committed as one
// change. Devices that cannot be allocated are reported in the issues and
// left out of the design; the run still commits.
//
// Parameters:
//   - ctx: Checked before the run starts
//   - devices: Device records in snapshot order
//   - metadata: Optional vendor attributes keyed by element ID
//
// Returns:
//   - RunResult: the plan, circuit summaries and every issue raised
//   - error: wrapping circuit.ErrInvalidDevice or
//     assignment.ErrDuplicateElement for malformed input
func (s *Service) Run(ctx context.Context, devices []circuit.DeviceRecord, metadata map[int64]circuit.Metadata) (RunResult, error) {
	var plan capacity.Plan

	res, err := s.edit(ctx, OpRun, true, func(tx *assignment.Tx, res *Result) error {
		seen := make(map[int64]struct{}, len(devices))
		for _, rec := range devices {
			if err := circuit.ValidateDeviceRecord(rec); err != nil {
				return fmt.Errorf("device %d: %w", rec.ID, err)
			}
			if _, dup := seen[rec.ID]; dup {
				return fmt.Errorf("%w: %d", assignment.ErrDuplicateElement, rec.ID)
			}
			seen[rec.ID] = struct{}{}
		}

		plan = s.capacity.ComputeCircuits(devices)
		res.Outcome.Add(plan.Issues...)

		tx.Clear()
		for _, req := range plan.Circuits {
			for _, rec := range req.Devices {
				a := circuit.NewAssignment(rec, req.PanelID, req.ID)
				if err := tx.Add(rec, a, metadata[rec.ID]); err != nil {
					return err
				}
			}

			branch := tx.Branch(req.ID)
			addr := s.addresses.AutoAssign(branch)
			res.Outcome.Add(addr.Issues...)
			res.Changes = append(res.Changes, addr.Changes...)
			if err := s.stage(tx, branch); err != nil {
				return err
			}
			res.Circuits = append(res.Circuits, req.ID)
		}
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{
		ID:        res.ChangeID,
		Plan:      plan,
		Summaries: res.summaries,
		Issues:    res.Outcome.Issues,
	}, nil
}
