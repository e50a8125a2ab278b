package addressing

import (
	"fmt"
	"sort"
	"strconv"
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

// Address space defaults.
const (
	DefaultMax   = 250
	DefaultStart = 1
)

// Options configures the address space of every circuit.
type Options struct {
	// Max is the highest usable address.
	Max int

	// Start is where automated scans begin.
	Start int
}

// DefaultOptions returns a 1..250 space scanned from address 1.
func DefaultOptions() Options {
	return Options{Max: DefaultMax, Start: DefaultStart}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Max < 1 {
		return fmt.Errorf("%w: max must be positive, got %d", ErrInvalidOptions, o.Max)
	}
	if o.Start < 1 || o.Start > o.Max {
		return fmt.Errorf("%w: start %d outside 1..%d", ErrInvalidOptions, o.Start, o.Max)
	}
	return nil
}

// Change records one address move made by an operation.
type Change struct {
	ElementID  int64 `json:"element_id"`
	OldAddress int   `json:"old_address"`
	NewAddress int   `json:"new_address"`
}

// Result is returned by every branch operation.
type Result struct {
	Changes []Change        `json:"changes"`
	Issues  []circuit.Issue `json:"issues,omitempty"`
}

// Outcome converts the result's issues to an outcome.
func (r Result) Outcome() circuit.Outcome {
	return circuit.Outcome{Issues: r.Issues}
}

// Changed reports whether any address moved.
func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

func (r *Result) move(a *circuit.Assignment, addr int) {
	if a.Address == addr {
		return
	}
	r.Changes = append(r.Changes, Change{ElementID: a.ElementID, OldAddress: a.Address, NewAddress: addr})
	a.Address = addr
}

// Allocator assigns and maintains addresses within one circuit at a time.
// It holds no per-circuit state and is safe for concurrent use on distinct
// branches.
type Allocator struct {
	opts   Options
	logger Logger
}

// NewAllocator creates an allocator after validating the options.
func NewAllocator(opts Options) (*Allocator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{opts: opts, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for the allocator.
func (a *Allocator) SetLogger(logger Logger) {
	a.logger = logger
}

// Options returns the allocator options.
func (a *Allocator) Options() Options {
	return a.opts
}

// occupied builds the space from every assigned device in the branch for
// which keep returns true. A nil keep includes all.
func (a *Allocator) occupied(branch []*circuit.Assignment, keep func(*circuit.Assignment) bool) *Space {
	space := NewSpace(a.opts.Max)
	for _, as := range branch {
		if as == nil || !as.IsAssigned() {
			continue
		}
		if keep == nil || keep(as) {
			space.Occupy(as.Address, as.Slots())
		}
	}
	return space
}

// place finds a block for slots starting at the cursor, falling back to a
// scan from Start when nothing fits above the cursor.
func (a *Allocator) place(space *Space, cursor, slots int) (int, bool) {
	if addr, ok := space.FirstFit(cursor, slots); ok {
		return addr, true
	}
	if cursor > a.opts.Start {
		return space.FirstFit(a.opts.Start, slots)
	}
	return 0, false
}

func (a *Allocator) inRange(as *circuit.Assignment) bool {
	return as.FitsWithin(a.opts.Max)
}

func (a *Allocator) noBlock(as *circuit.Assignment) circuit.Issue {
	return circuit.NewIssue(circuit.CodeAddrNoBlock,
		fmt.Sprintf("No contiguous free address block on %s for device %d: needs %d slots",
			as.CircuitID, as.ElementID, as.Slots()), as.ElementID)
}

// AutoAssign gives every unassigned device in the branch the next available
// block, scanning upward from Start in input order. Assigned devices of any
// lock state are left alone and their blocks are treated as occupied.
func (a *Allocator) AutoAssign(branch []*circuit.Assignment) Result {
	var res Result
	space := a.occupied(branch, nil)
	cursor := a.opts.Start

	for _, as := range branch {
		if as == nil || as.IsAssigned() {
			continue
		}
		addr, ok := a.place(space, cursor, as.Slots())
		if !ok {
			res.Issues = append(res.Issues, a.noBlock(as))
			continue
		}
		space.Occupy(addr, as.Slots())
		res.move(as, addr)
		cursor = addr + as.Slots()
	}

	a.logger.Debug("auto-assign complete", "assigned", len(res.Changes), "issues", len(res.Issues))
	return res
}

// GapFill places each unassigned device into the lowest gap large enough for
// it. Devices that already hold an address are never touched.
func (a *Allocator) GapFill(branch []*circuit.Assignment) Result {
	var res Result
	space := a.occupied(branch, nil)

	for _, as := range branch {
		if as == nil || as.IsAssigned() {
			continue
		}
		addr, ok := space.FirstFit(a.opts.Start, as.Slots())
		if !ok {
			res.Issues = append(res.Issues, a.noBlock(as))
			continue
		}
		space.Occupy(addr, as.Slots())
		res.move(as, addr)
	}

	a.logger.Debug("gap-fill complete", "filled", len(res.Changes), "issues", len(res.Issues))
	return res
}

// Resequence compacts the addresses of auto devices. Taken in ascending order
// of their current address, each auto device moves to the lowest free block
// that fits it, so a small device can fill a gap skipped by a larger one.
// Locked and manual devices keep their addresses and auto devices are placed
// around them, never into them. Unassigned devices are ignored.
//
// Placement is all or nothing: if any auto device cannot be placed, no address
// changes and the failure is reported.
func (a *Allocator) Resequence(branch []*circuit.Assignment) Result {
	var res Result
	space := a.occupied(branch, func(as *circuit.Assignment) bool {
		return as.LockState.IsFixed()
	})

	var autos []*circuit.Assignment
	for _, as := range branch {
		if as != nil && as.IsAssigned() && !as.LockState.IsFixed() {
			autos = append(autos, as)
		}
	}
	sort.SliceStable(autos, func(i, j int) bool {
		return autos[i].Address < autos[j].Address
	})

	planned := make([]int, len(autos))
	for i, as := range autos {
		addr, ok := space.FirstFit(a.opts.Start, as.Slots())
		if !ok {
			res.Issues = append(res.Issues, a.noBlock(as))
			return res
		}
		space.Occupy(addr, as.Slots())
		planned[i] = addr
	}

	for i, as := range autos {
		res.move(as, planned[i])
	}

	a.logger.Debug("resequence complete", "moved", len(res.Changes))
	return res
}

// FirstAvailable returns the lowest free block of the target's slot count,
// ignoring the target's own current block. No assignment is modified.
func (a *Allocator) FirstAvailable(branch []*circuit.Assignment, target *circuit.Assignment) (int, circuit.Outcome) {
	space := a.occupied(branch, func(as *circuit.Assignment) bool {
		return as.ElementID != target.ElementID
	})
	addr, ok := space.FirstFit(a.opts.Start, target.Slots())
	if !ok {
		return 0, circuit.Failure(a.noBlock(target))
	}
	return addr, circuit.Success()
}

// Conflict is a set of devices whose address ranges overlap.
// Address is the lowest address the whole set shares.
type Conflict struct {
	Address    int     `json:"address"`
	ElementIDs []int64 `json:"element_ids"`
}

// Report is the result of Validate.
type Report struct {
	CircuitID           string          `json:"circuit_id"`
	Conflicts           []Conflict      `json:"conflicts"`
	Unassigned          []int64         `json:"unassigned"`
	OutOfRange          []int64         `json:"out_of_range"`
	Issues              []circuit.Issue `json:"issues"`
	AllDevicesAddressed bool            `json:"all_devices_addressed"`
	Valid               bool            `json:"valid"`
}

// Validate scans the branch for overlapping ranges, unassigned devices and
// blocks that run past Max. A branch is valid when it has none of these.
func (a *Allocator) Validate(branch []*circuit.Assignment) Report {
	var report Report

	owners := make(map[int][]int64)
	for _, as := range branch {
		if as == nil {
			continue
		}
		if report.CircuitID == "" {
			report.CircuitID = as.CircuitID
		}
		if !as.IsAssigned() {
			report.Unassigned = append(report.Unassigned, as.ElementID)
			report.Issues = append(report.Issues, circuit.NewWarning(circuit.CodeAddrUnassigned,
				fmt.Sprintf("Device %d on %s has no address", as.ElementID, as.CircuitID), as.ElementID))
			continue
		}
		if !a.inRange(as) {
			report.OutOfRange = append(report.OutOfRange, as.ElementID)
			report.Issues = append(report.Issues, circuit.NewIssue(circuit.CodeAddrOutOfRange,
				fmt.Sprintf("Device %d on %s needs %d slots from %d, beyond address space max %d",
					as.ElementID, as.CircuitID, as.Slots(), as.Address, a.opts.Max), as.ElementID))
			continue
		}
		for addr := as.Address; addr <= as.LastAddress(); addr++ {
			owners[addr] = append(owners[addr], as.ElementID)
		}
	}

	addrs := make([]int, 0, len(owners))
	for addr, ids := range owners {
		if len(ids) > 1 {
			addrs = append(addrs, addr)
		}
	}
	sort.Ints(addrs)

	seen := make(map[string]bool)
	for _, addr := range addrs {
		ids := append([]int64(nil), owners[addr]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		key := fmt.Sprint(ids)
		if seen[key] {
			continue
		}
		seen[key] = true
		report.Conflicts = append(report.Conflicts, Conflict{Address: addr, ElementIDs: ids})
		report.Issues = append(report.Issues, circuit.NewIssue(circuit.CodeAddrConflict,
			fmt.Sprintf("Address %d on %s is claimed by devices %s", addr, report.CircuitID, joinIDs(ids)), ids...))
	}

	report.AllDevicesAddressed = len(report.Unassigned) == 0
	report.Valid = report.AllDevicesAddressed && len(report.Conflicts) == 0 && len(report.OutOfRange) == 0
	return report
}

// ResolveConflicts relocates auto devices out of every detected conflict.
//
// Each moving device is placed in the first free block after the conflict
// point, falling back to a scan from Start. Locked and manual devices stay put.
// When a conflict involves no fixed device, the first auto device in input
// order keeps its address. A conflict between two or more fixed devices cannot
// be resolved and is reported as an error.
func (a *Allocator) ResolveConflicts(branch []*circuit.Assignment) Result {
	var res Result

	report := a.Validate(branch)
	if len(report.Conflicts) == 0 {
		return res
	}

	space := a.occupied(branch, nil)

	for _, conflict := range report.Conflicts {
		inGroup := make(map[int64]bool, len(conflict.ElementIDs))
		for _, id := range conflict.ElementIDs {
			inGroup[id] = true
		}

		var fixed, autos []*circuit.Assignment
		for _, as := range branch {
			if as == nil || !inGroup[as.ElementID] {
				continue
			}
			if as.LockState.IsFixed() {
				fixed = append(fixed, as)
			} else {
				autos = append(autos, as)
			}
		}

		if len(fixed) > 1 {
			ids := make([]int64, 0, len(fixed))
			for _, as := range fixed {
				ids = append(ids, as.ElementID)
			}
			res.Issues = append(res.Issues, circuit.NewIssue(circuit.CodeAddrConflict,
				fmt.Sprintf("Conflict at address %d on %s between locked or manual devices %s cannot be resolved automatically",
					conflict.Address, report.CircuitID, joinIDs(ids)), ids...))
		}

		movers := autos
		if len(fixed) == 0 && len(movers) > 0 {
			movers = movers[1:]
		}

		for _, as := range movers {
			if !as.IsAssigned() {
				continue
			}
			space.Release(as.Address, as.Slots())
			if space.IsFree(as.Address, as.Slots()) {
				// an earlier move already cleared this block
				space.Occupy(as.Address, as.Slots())
				continue
			}
			addr, ok := a.place(space, max(conflict.Address+1, a.opts.Start), as.Slots())
			if !ok {
				space.Occupy(as.Address, as.Slots())
				res.Issues = append(res.Issues, a.noBlock(as))
				continue
			}
			space.Occupy(addr, as.Slots())
			res.move(as, addr)
		}
	}

	a.MarkConflicts(branch)

	a.logger.Info("conflicts resolved",
		"circuit_id", report.CircuitID,
		"conflicts", len(report.Conflicts),
		"moved", len(res.Changes),
		"unresolved", len(res.Issues),
	)
	return res
}

// MarkConflicts sets the Conflicted flag on every assignment that overlaps
// another and clears it elsewhere. It returns the IDs left flagged.
func (a *Allocator) MarkConflicts(branch []*circuit.Assignment) []int64 {
	var flagged []int64
	for i, as := range branch {
		if as == nil {
			continue
		}
		conflicted := false
		for j, other := range branch {
			if i != j && other != nil && as.Overlaps(other) {
				conflicted = true
				break
			}
		}
		as.Conflicted = conflicted
		if conflicted {
			flagged = append(flagged, as.ElementID)
		}
	}
	return flagged
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
