package capacity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Logger defines the logging interface used by the Allocator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// limitTolerance absorbs float error when comparing summed currents.
const limitTolerance = 1e-9

// Operation names the edit a MoveRequest validates. It prefixes messages.
type Operation string

// Operations gated by ValidateMove.
const (
	OpMove       Operation = "Move"
	OpInsert     Operation = "Insert"
	OpBranchMove Operation = "Branch move"
)

// CircuitRequirement is one circuit produced by ComputeCircuits.
type CircuitRequirement struct {
	ID       string `json:"id"`
	PanelID  string `json:"panel_id"`
	Suffix   string `json:"suffix"`
	GroupKey string `json:"group_key"`

	Devices []circuit.DeviceRecord `json:"devices"`
	Load    circuit.Load           `json:"load"`

	// SealedBy names the limit that closed the circuit, or none for the last
	// circuit of a group.
	SealedBy circuit.LimitingFactor `json:"sealed_by"`
}

// GroupEstimate is the theoretical circuit count for one segmentation group.
type GroupEstimate struct {
	Key                   string                 `json:"key"`
	DeviceCount           int                    `json:"device_count"`
	CircuitsByCurrent     int                    `json:"circuits_by_current"`
	CircuitsByUnitLoad    int                    `json:"circuits_by_unit_load"`
	CircuitsByDeviceCount int                    `json:"circuits_by_device_count"`
	Required              int                    `json:"required"`
	LimitingFactor        circuit.LimitingFactor `json:"limiting_factor"`
}

// Plan is the result of ComputeCircuits.
type Plan struct {
	Circuits  []CircuitRequirement   `json:"circuits"`
	Excluded  []circuit.DeviceRecord `json:"excluded,omitempty"`
	Estimates []GroupEstimate        `json:"estimates"`
	Issues    []circuit.Issue        `json:"issues,omitempty"`
}

// PanelCount returns the number of distinct panels used by the plan.
func (p Plan) PanelCount() int {
	seen := make(map[string]struct{})
	for _, c := range p.Circuits {
		seen[c.PanelID] = struct{}{}
	}
	return len(seen)
}

// MoveRequest describes a proposed relocation of devices onto a circuit.
//
// CircuitMembers and PanelMembers are the devices currently assigned to the
// target circuit and panel. Moving devices found in them are excluded before
// summing, so a device is never counted twice.
type MoveRequest struct {
	Operation       Operation
	TargetCircuitID string
	TargetPanelID   string
	Moving          []circuit.DeviceRecord
	CircuitMembers  []circuit.DeviceRecord
	PanelMembers    []circuit.DeviceRecord
}

// Allocator groups devices into circuits and validates load changes.
// It is stateless apart from its configuration and safe for concurrent use.
type Allocator struct {
	cfg    Configuration
	logger Logger
}

// NewAllocator creates an allocator after validating the configuration.
//
// Returns:
//   - *Allocator: ready to use
//   - error: wrapping ErrInvalidConfiguration if cfg is invalid
func NewAllocator(cfg Configuration) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{cfg: cfg, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for the allocator.
func (a *Allocator) SetLogger(logger Logger) {
	a.logger = logger
}

// Config returns the allocator configuration.
func (a *Allocator) Config() Configuration {
	return a.cfg
}

// ComputeCircuits partitions devices into circuits using first-fit grouping.
//
// Devices are grouped by the configured segmentation key, groups ordered by
// first appearance. Within a group devices are taken in input order. Ineligible
// devices (no current and no wattage) and devices that alone exceed a circuit
// limit are excluded and reported.
func (a *Allocator) ComputeCircuits(devices []circuit.DeviceRecord) Plan {
	var plan Plan

	var order []string
	groups := make(map[string][]circuit.DeviceRecord)

	for _, rec := range devices {
		if !rec.Eligible() {
			plan.Excluded = append(plan.Excluded, rec)
			plan.Issues = append(plan.Issues, circuit.NewWarning(circuit.CodeDeviceIneligible,
				fmt.Sprintf("Device %d has no current draw or wattage and was not allocated", rec.ID), rec.ID))
			continue
		}
		if issue, oversized := a.oversized(rec); oversized {
			plan.Excluded = append(plan.Excluded, rec)
			plan.Issues = append(plan.Issues, issue)
			continue
		}

		key := rec.KeyFor(a.cfg.SegmentBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	seq := 0
	seal := func(key string, members []circuit.DeviceRecord, load circuit.Load, by circuit.LimitingFactor) {
		seq++
		panel := circuit.PanelID((seq-1)/a.cfg.CircuitsPerPanel + 1)
		suffix := circuit.CircuitSuffix(seq)
		plan.Circuits = append(plan.Circuits, CircuitRequirement{
			ID:       circuit.CircuitID(panel, suffix),
			PanelID:  panel,
			Suffix:   suffix,
			GroupKey: key,
			Devices:  members,
			Load:     load,
			SealedBy: by,
		})
		a.logger.Debug("circuit sealed",
			"circuit_id", circuit.CircuitID(panel, suffix),
			"devices", load.DeviceCount,
			"current_a", load.CurrentA,
			"unit_loads", load.UnitLoads,
			"sealed_by", string(by),
		)
	}

	for _, key := range order {
		group := groups[key]
		plan.Estimates = append(plan.Estimates, a.estimate(key, group))

		var (
			members []circuit.DeviceRecord
			load    circuit.Load
		)
		for _, rec := range group {
			if len(members) > 0 {
				if by := a.wouldExceed(load, members, rec); by != circuit.LimitNone {
					seal(key, members, load, by)
					members, load = nil, circuit.Load{}
				}
			}
			members = append(members, rec)
			load.Add(rec)
		}
		if len(members) > 0 {
			seal(key, members, load, circuit.LimitNone)
		}
	}

	a.logger.Info("circuits computed",
		"devices", len(devices),
		"circuits", len(plan.Circuits),
		"panels", plan.PanelCount(),
		"excluded", len(plan.Excluded),
	)

	return plan
}

// oversized reports a device that cannot fit on an empty circuit.
func (a *Allocator) oversized(rec circuit.DeviceRecord) (circuit.Issue, bool) {
	derated := a.cfg.DeratedCurrentA()
	if rec.CurrentDrawA > derated+limitTolerance {
		return circuit.NewIssue(circuit.CodeCapDeviceOversized,
			fmt.Sprintf("Device %d alone exceeds the circuit current limit: %.2fA > %.2fA (%.2fA rated, %s); manual resolution required",
				rec.ID, rec.CurrentDrawA, derated, a.cfg.CurrentLimitA, a.cfg.sparePercent()), rec.ID), true
	}
	deratedUL := a.cfg.DeratedUnitLoads()
	if float64(rec.UnitLoads) > deratedUL+limitTolerance {
		return circuit.NewIssue(circuit.CodeCapDeviceOversized,
			fmt.Sprintf("Device %d alone exceeds the circuit unit load limit: %d UL > %.1f UL (%d UL rated, %s); manual resolution required",
				rec.ID, rec.UnitLoads, deratedUL, a.cfg.UnitLoadLimit, a.cfg.sparePercent()), rec.ID), true
	}
	return circuit.Issue{}, false
}

// wouldExceed returns the first limit broken by adding rec to an open circuit.
func (a *Allocator) wouldExceed(load circuit.Load, members []circuit.DeviceRecord, rec circuit.DeviceRecord) circuit.LimitingFactor {
	switch {
	case load.CurrentA+rec.CurrentDrawA > a.cfg.DeratedCurrentA()+limitTolerance:
		return circuit.LimitCurrent
	case float64(load.UnitLoads+rec.UnitLoads) > a.cfg.DeratedUnitLoads()+limitTolerance:
		return circuit.LimitUnitLoad
	case load.DeviceCount+1 > a.cfg.MaxDevicesPerCircuit:
		return circuit.LimitDeviceCount
	}
	if _, _, violated := a.mixViolation(append(members[:len(members):len(members)], rec)); violated {
		return circuit.LimitMixRule
	}
	return circuit.LimitNone
}

// estimate computes the theoretical circuit count for a group.
// When counts differ the larger governs; ties go to current, then unit load.
func (a *Allocator) estimate(key string, group []circuit.DeviceRecord) GroupEstimate {
	load := circuit.LoadOf(group)
	est := GroupEstimate{
		Key:                   key,
		DeviceCount:           load.DeviceCount,
		CircuitsByCurrent:     ceilDiv(load.CurrentA, a.cfg.DeratedCurrentA()),
		CircuitsByUnitLoad:    ceilDiv(float64(load.UnitLoads), a.cfg.DeratedUnitLoads()),
		CircuitsByDeviceCount: ceilDiv(float64(load.DeviceCount), float64(a.cfg.MaxDevicesPerCircuit)),
		LimitingFactor:        circuit.LimitCurrent,
	}
	est.Required = est.CircuitsByCurrent
	if est.CircuitsByUnitLoad > est.Required {
		est.Required = est.CircuitsByUnitLoad
		est.LimitingFactor = circuit.LimitUnitLoad
	}
	if est.CircuitsByDeviceCount > est.Required {
		est.Required = est.CircuitsByDeviceCount
		est.LimitingFactor = circuit.LimitDeviceCount
	}
	return est
}

func ceilDiv(total, per float64) int {
	if total <= 0 || per <= 0 {
		return 0
	}
	return int(math.Ceil(total/per - limitTolerance))
}

// Summarise computes the report row for one circuit from its current members.
// The limiting factor is the constraint with the highest utilisation.
func (a *Allocator) Summarise(circuitID, panelID string, members []circuit.DeviceRecord) circuit.Summary {
	load := circuit.LoadOf(members)
	s := circuit.Summary{
		CircuitID:      circuitID,
		PanelID:        panelID,
		CurrentA:       load.CurrentA,
		UnitLoads:      load.UnitLoads,
		DeviceCount:    load.DeviceCount,
		WattageW:       load.WattageW,
		LimitingFactor: circuit.LimitNone,
	}
	if d := a.cfg.DeratedCurrentA(); d > 0 {
		s.CurrentUtilisation = load.CurrentA / d
	}
	if d := a.cfg.DeratedUnitLoads(); d > 0 {
		s.UnitLoadUtilisation = float64(load.UnitLoads) / d
	}
	countUtilisation := float64(load.DeviceCount) / float64(a.cfg.MaxDevicesPerCircuit)

	best := 0.0
	if s.CurrentUtilisation > best {
		best, s.LimitingFactor = s.CurrentUtilisation, circuit.LimitCurrent
	}
	if s.UnitLoadUtilisation > best {
		best, s.LimitingFactor = s.UnitLoadUtilisation, circuit.LimitUnitLoad
	}
	if countUtilisation > best {
		s.LimitingFactor = circuit.LimitDeviceCount
	}
	return s
}

// ValidateMove checks whether the moving devices fit on the target circuit and
// panel alongside every other device already there. Each broken limit yields
// one issue; nothing is mutated.
func (a *Allocator) ValidateMove(req MoveRequest) circuit.Outcome {
	op := req.Operation
	if op == "" {
		op = OpMove
	}

	moving := make(map[int64]struct{}, len(req.Moving))
	ids := make([]int64, 0, len(req.Moving))
	for _, rec := range req.Moving {
		moving[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}

	projected := append(others(req.CircuitMembers, moving), req.Moving...)
	out := a.checkLoad(string(op)+" would exceed", req.TargetCircuitID, projected, ids)

	if a.cfg.PanelCurrentLimitA > 0 && req.TargetPanelID != "" {
		panelLoad := circuit.LoadOf(others(req.PanelMembers, moving)).Plus(circuit.LoadOf(req.Moving))
		limit := a.cfg.DeratedPanelCurrentA()
		if panelLoad.CurrentA > limit+limitTolerance {
			out.Add(circuit.NewIssue(circuit.CodeCapPanelCurrentExceeded,
				fmt.Sprintf("%s would exceed panel current limit on %s: %.2fA > %.2fA (%.2fA rated, %s)",
					op, req.TargetPanelID, panelLoad.CurrentA, limit, a.cfg.PanelCurrentLimitA, a.cfg.sparePercent()),
				ids...))
		}
	}

	if !out.OK() {
		a.logger.Debug("move rejected",
			"operation", string(op),
			"target", req.TargetCircuitID,
			"reason", out.Reason(),
		)
	}
	return out
}

// CheckCircuit reports every limit the circuit's current members break.
func (a *Allocator) CheckCircuit(circuitID string, members []circuit.DeviceRecord) circuit.Outcome {
	ids := make([]int64, 0, len(members))
	for _, rec := range members {
		ids = append(ids, rec.ID)
	}
	return a.checkLoad("Circuit load exceeds", circuitID, members, ids)
}

// CheckPanel reports a panel whose summed current exceeds the panel limit.
func (a *Allocator) CheckPanel(panelID string, members []circuit.DeviceRecord) circuit.Outcome {
	out := circuit.Success()
	if a.cfg.PanelCurrentLimitA <= 0 {
		return out
	}
	load := circuit.LoadOf(members)
	limit := a.cfg.DeratedPanelCurrentA()
	if load.CurrentA > limit+limitTolerance {
		ids := make([]int64, 0, len(members))
		for _, rec := range members {
			ids = append(ids, rec.ID)
		}
		out.Add(circuit.NewIssue(circuit.CodeCapPanelCurrentExceeded,
			fmt.Sprintf("Panel load exceeds current limit on %s: %.2fA > %.2fA (%.2fA rated, %s)",
				panelID, load.CurrentA, limit, a.cfg.PanelCurrentLimitA, a.cfg.sparePercent()), ids...))
	}
	return out
}

// checkLoad evaluates one circuit's projected membership against every limit.
func (a *Allocator) checkLoad(prefix, circuitID string, members []circuit.DeviceRecord, ids []int64) circuit.Outcome {
	out := circuit.Success()
	load := circuit.LoadOf(members)

	if limit := a.cfg.DeratedCurrentA(); load.CurrentA > limit+limitTolerance {
		out.Add(circuit.NewIssue(circuit.CodeCapCurrentExceeded,
			fmt.Sprintf("%s current limit on %s: %.2fA > %.2fA (%.2fA rated, %s)",
				prefix, circuitID, load.CurrentA, limit, a.cfg.CurrentLimitA, a.cfg.sparePercent()), ids...))
	}
	if limit := a.cfg.DeratedUnitLoads(); float64(load.UnitLoads) > limit+limitTolerance {
		out.Add(circuit.NewIssue(circuit.CodeCapUnitLoadExceeded,
			fmt.Sprintf("%s unit load limit on %s: %d UL > %.1f UL (%d UL rated, %s)",
				prefix, circuitID, load.UnitLoads, limit, a.cfg.UnitLoadLimit, a.cfg.sparePercent()), ids...))
	}
	if load.DeviceCount > a.cfg.MaxDevicesPerCircuit {
		out.Add(circuit.NewIssue(circuit.CodeCapDeviceCountExceeded,
			fmt.Sprintf("%s device limit on %s: %d devices > %d maximum",
				prefix, circuitID, load.DeviceCount, a.cfg.MaxDevicesPerCircuit), ids...))
	}
	if field, keys, violated := a.mixViolation(members); violated {
		out.Add(circuit.NewIssue(circuit.CodeCapMixViolation,
			fmt.Sprintf("%s mix rule on %s: %s values %s must not share a circuit",
				prefix, circuitID, field, strings.Join(keys, ", ")), ids...))
	}
	return out
}

// mixViolation returns the first rule under which members carry two or more
// distinct excluded keys, with those keys sorted.
func (a *Allocator) mixViolation(members []circuit.DeviceRecord) (string, []string, bool) {
	for _, rule := range a.cfg.MixExclusionRules {
		seen := make(map[string]struct{})
		for _, rec := range members {
			if key, ok := rule.matches(rec); ok {
				seen[key] = struct{}{}
			}
		}
		if len(seen) > 1 {
			keys := make([]string, 0, len(seen))
			for k := range seen {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return rule.field(), keys, true
		}
	}
	return "", nil, false
}

// others returns members whose IDs are not in the excluded set.
func others(members []circuit.DeviceRecord, excluded map[int64]struct{}) []circuit.DeviceRecord {
	out := make([]circuit.DeviceRecord, 0, len(members))
	for _, rec := range members {
		if _, skip := excluded[rec.ID]; !skip {
			out = append(out, rec)
		}
	}
	return out
}
