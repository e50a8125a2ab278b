package design

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-firealarm/internal/addressing"
	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/audit"
	"github.com/nerrad567/gray-logic-firealarm/internal/capacity"
	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Logger defines the logging interface used by the design service.
// This allows injecting a structured logger without depending on
// a specific logging implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that discards all output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher announces committed design changes, typically over MQTT.
type Publisher interface {
	PublishChange(change Change) error
}

// LoadRecorder stores circuit loads as time series, typically in InfluxDB.
type LoadRecorder interface {
	RecordChange(change Change)
}

// ChangeLog keeps the history of committed changes.
// *audit.SQLiteRepository satisfies it.
type ChangeLog interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Metrics receives operation counters and design gauges.
// *metrics.Metrics satisfies it.
type Metrics interface {
	ObserveOperation(operation, result string, d time.Duration)
	RecordIssueCodes(codes []string)
	SetDesignSize(circuits, panels, devices int)
	SetCircuitUtilisation(byCircuit map[string]float64)
}

// Operation names. They label metrics, log lines and MQTT events.
const (
	OpRun              = "run"
	OpMoveDevice       = "move_device"
	OpMoveBranch       = "move_branch"
	OpInsertDevice     = "insert_device"
	OpRemoveDevice     = "remove_device"
	OpAutoAssign       = "auto_assign"
	OpResequence       = "resequence"
	OpGapFill          = "gap_fill"
	OpResolveConflicts = "resolve_conflicts"
	OpLockAddress      = "lock_address"
	OpUnlockAddress    = "unlock_address"
	OpSetManualAddress = "set_manual_address"
	OpReleaseAddress   = "release_address"
	OpRestore          = "restore"
)

// Metric results.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// Result is returned by every edit.
//
// A business-rule failure is reported in Outcome with Committed false; the
// design is left exactly as it was. AutoAssign, GapFill and ResolveConflicts
// commit their partial progress, so they may return Committed true together
// with error issues for the devices they could not place.
type Result struct {
	ChangeID  string              `json:"change_id,omitempty"`
	Operation string              `json:"operation"`
	Committed bool                `json:"committed"`
	Outcome   circuit.Outcome     `json:"outcome"`
	Changes   []addressing.Change `json:"changes,omitempty"`
	Circuits  []string            `json:"circuits,omitempty"`

	// summaries of Circuits after the commit
	summaries []circuit.Summary
}

// OK reports whether the edit raised no error-severity issue.
func (r Result) OK() bool {
	return r.Outcome.OK()
}

// DesignSize counts the committed design.
type DesignSize struct {
	Circuits int `json:"circuits"`
	Panels   int `json:"panels"`
	Devices  int `json:"devices"`
}

// Change is the event emitted after every commit.
type Change struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	Circuits  []string          `json:"circuits"`
	Summaries []circuit.Summary `json:"summaries"`
	Issues    []circuit.Issue   `json:"issues,omitempty"`

	// CircuitIssues holds the issues touching each summarised circuit.
	CircuitIssues map[string][]circuit.Issue `json:"-"`

	Size     DesignSize    `json:"size"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// Service owns one fire alarm design: the committed assignments and the
// engines that change them.
//
// Every call is serialised. Edits validate against the committed state, then
// mutate inside one store transaction; a rejected or failed edit leaves the
// design untouched. Context cancellation is honoured only before a call
// starts.
//
// Thread Safety: all methods are safe for concurrent use.
type Service struct {
	mu sync.Mutex

	capacity  *capacity.Allocator
	addresses *addressing.Allocator
	store     *assignment.Store

	repo      assignment.Repository
	publisher Publisher
	recorder  LoadRecorder
	changes   ChangeLog
	metrics   Metrics
	logger    Logger
}

// NewService creates a design service with an empty design.
//
// Parameters:
//   - cfg: Circuit limits and address space; validated here
//
// Returns:
//   - *Service: ready to use
//   - error: wrapping capacity.ErrInvalidConfiguration or
//     addressing.ErrInvalidOptions if cfg is invalid
func NewService(cfg capacity.Configuration) (*Service, error) {
	capAlloc, err := capacity.NewAllocator(cfg)
	if err != nil {
		return nil, err
	}
	addrAlloc, err := addressing.NewAllocator(addressing.Options{
		Max:   cfg.AddressSpaceMax,
		Start: cfg.StartAddress,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		capacity:  capAlloc,
		addresses: addrAlloc,
		store:     assignment.NewStore(cfg.AddressSpaceMax),
		logger:    noopLogger{},
	}, nil
}

// SetLogger sets the logger for the service and both engines.
func (s *Service) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
	s.capacity.SetLogger(logger)
	s.addresses.SetLogger(logger)
}

// SetRepository enables persistence of every committed change.
func (s *Service) SetRepository(repo assignment.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repo = repo
}

// SetPublisher enables change notifications.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// SetLoadRecorder enables circuit load time series.
func (s *Service) SetLoadRecorder(r LoadRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// SetMetrics enables operation metrics.
func (s *Service) SetMetrics(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// SetChangeLog enables the change history.
func (s *Service) SetChangeLog(c ChangeLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = c
}

// Config returns the capacity configuration the service was built with.
func (s *Service) Config() capacity.Configuration {
	return s.capacity.Config()
}

// Restore replaces the design with the last persisted snapshot.
//
// Returns:
//   - DesignSize: counts of the restored design
//   - error: ErrNoRepository, a load error, or a store validation error
func (s *Service) Restore(ctx context.Context) (DesignSize, error) {
	if err := ctx.Err(); err != nil {
		return DesignSize{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if s.repo == nil {
		return DesignSize{}, ErrNoRepository
	}

	snap, err := s.repo.Load(ctx)
	if err != nil {
		s.observe(OpRestore, resultError, start)
		return DesignSize{}, fmt.Errorf("loading design: %w", err)
	}
	if err := s.store.Restore(snap); err != nil {
		s.observe(OpRestore, resultError, start)
		return DesignSize{}, fmt.Errorf("restoring design: %w", err)
	}

	size := s.size()
	s.refreshGauges(size)
	s.observe(OpRestore, resultOK, start)

	s.logger.Info("design restored",
		"circuits", size.Circuits,
		"panels", size.Panels,
		"devices", size.Devices,
	)
	return size, nil
}

// editFunc stages one edit inside tx. It reports business failures through
// res.Outcome and programming faults as an error.
type editFunc func(tx *assignment.Tx, res *Result) error

// edit runs fn in a transaction and commits when fn succeeds and, unless
// partial is set, raised no error issue.
func (s *Service) edit(ctx context.Context, op string, partial bool, fn editFunc) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := Result{Operation: op}

	tx, err := s.store.Begin()
	if err != nil {
		s.observe(op, resultError, start)
		return Result{}, err
	}
	defer tx.Rollback()

	if err := fn(tx, &res); err != nil {
		s.observe(op, resultError, start)
		s.logger.Debug("design edit failed", "operation", op, "error", err)
		return Result{}, err
	}

	s.recordIssues(res.Outcome.Issues)

	if !res.Outcome.OK() && !partial {
		tx.Rollback()
		res.Changes = nil
		s.observe(op, resultRejected, start)
		s.logger.Debug("design edit rejected", "operation", op, "reason", res.Outcome.Reason())
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		s.observe(op, resultError, start)
		s.logger.Error("design commit failed", "operation", op, "error", err)
		return Result{}, fmt.Errorf("committing %s: %w", op, err)
	}
	res.Committed = true

	s.afterCommit(ctx, op, &res, start)

	result := resultOK
	if !res.Outcome.OK() {
		result = resultRejected
	}
	s.observe(op, result, start)
	return res, nil
}

// afterCommit persists the design and notifies collaborators. Failures here
// are logged: the in-memory design is authoritative and the next commit saves
// the full snapshot again. The caller holds s.mu.
func (s *Service) afterCommit(ctx context.Context, op string, res *Result, start time.Time) {
	res.ChangeID = uuid.NewString()

	if s.repo != nil {
		if err := s.repo.Save(context.WithoutCancel(ctx), s.store.Snapshot()); err != nil {
			s.logger.Error("failed to persist design",
				"operation", op,
				"change_id", res.ChangeID,
				"error", err,
			)
		}
	}

	size := s.size()
	s.refreshGauges(size)

	change := Change{
		ID:        res.ChangeID,
		Operation: op,
		Circuits:  res.Circuits,
		Summaries: s.summariesOf(s.store, res.Circuits),
		Issues:    res.Outcome.Issues,
		Size:      size,
		Duration:  time.Since(start),
		At:        time.Now().UTC(),
	}
	change.CircuitIssues = s.issuesByCircuit(res.Circuits, res.Outcome.Issues)
	res.summaries = change.Summaries

	if s.publisher != nil {
		if err := s.publisher.PublishChange(change); err != nil {
			s.logger.Warn("failed to publish design change",
				"operation", op,
				"change_id", change.ID,
				"error", err,
			)
		}
	}
	if s.recorder != nil {
		s.recorder.RecordChange(change)
	}
	if s.changes != nil {
		if err := s.changes.Create(context.WithoutCancel(ctx), historyEntry(change)); err != nil {
			s.logger.Warn("failed to record design change",
				"operation", op,
				"change_id", change.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("design change committed",
		"operation", op,
		"change_id", change.ID,
		"circuits", len(res.Circuits),
		"address_changes", len(res.Changes),
		"issues", len(res.Outcome.Issues),
	)
}

func (s *Service) observe(op, result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, result, time.Since(start))
	}
}

func (s *Service) recordIssues(issues []circuit.Issue) {
	if s.metrics == nil || len(issues) == 0 {
		return
	}
	codes := make([]string, len(issues))
	for i, iss := range issues {
		codes[i] = string(iss.Code)
	}
	s.metrics.RecordIssueCodes(codes)
}

// refreshGauges publishes the design size and per-circuit utilisation.
func (s *Service) refreshGauges(size DesignSize) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetDesignSize(size.Circuits, size.Panels, size.Devices)

	util := make(map[string]float64)
	for _, sum := range s.summariesOf(s.store, s.store.Circuits()) {
		util[sum.CircuitID] = utilisation(sum)
	}
	s.metrics.SetCircuitUtilisation(util)
}

// issuesByCircuit files each issue under every listed circuit holding one of
// its affected devices.
func (s *Service) issuesByCircuit(circuitIDs []string, issues []circuit.Issue) map[string][]circuit.Issue {
	if len(issues) == 0 {
		return nil
	}
	out := make(map[string][]circuit.Issue)
	for _, cid := range circuitIDs {
		members := make(map[int64]struct{})
		for _, a := range s.store.Branch(cid) {
			members[a.ElementID] = struct{}{}
		}
		for _, iss := range issues {
			for _, id := range iss.AffectedElementIDs {
				if _, ok := members[id]; ok {
					out[cid] = append(out[cid], iss)
					break
				}
			}
		}
	}
	return out
}

func (s *Service) size() DesignSize {
	return DesignSize{
		Circuits: len(s.store.Circuits()),
		Panels:   len(s.store.Panels()),
		Devices:  s.store.Len(),
	}
}

// historyEntry condenses a change into a history entry.
func historyEntry(change Change) *audit.Entry {
	e := &audit.Entry{
		ChangeID:  change.ID,
		Operation: change.Operation,
		Circuits:  change.Circuits,
		Devices:   change.Size.Devices,
		CreatedAt: change.At,
		Details: map[string]any{
			"circuits_total": change.Size.Circuits,
			"panels_total":   change.Size.Panels,
			"duration_ms":    change.Duration.Milliseconds(),
		},
	}
	codes := make([]string, 0, len(change.Issues))
	for _, iss := range change.Issues {
		switch iss.Severity {
		case circuit.SeverityError:
			e.Errors++
		case circuit.SeverityWarning:
			e.Warnings++
		}
		codes = append(codes, string(iss.Code))
	}
	if len(codes) > 0 {
		e.Details["issue_codes"] = codes
	}
	return e
}

// utilisation is the higher of the current and unit load utilisation.
func utilisation(sum circuit.Summary) float64 {
	return max(sum.CurrentUtilisation, sum.UnitLoadUtilisation)
}
