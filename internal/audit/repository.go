// Package audit stores the history of committed design changes in the
// design_changes table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one committed design change.
type Entry struct {
	ID        string         `json:"id"`
	ChangeID  string         `json:"change_id"`
	Operation string         `json:"operation"`
	Circuits  []string       `json:"circuits"`
	Errors    int            `json:"errors"`
	Warnings  int            `json:"warnings"`
	Devices   int            `json:"devices"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which entries to return.
type Filter struct {
	Operation string // optional: filter by operation (run, move_device, ...)
	CircuitID string // optional: entries touching this circuit
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for change history operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores change history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new change history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "chg-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Circuits == nil {
		entry.Circuits = []string{}
	}

	circuitsJSON, err := json.Marshal(entry.Circuits)
	if err != nil {
		return fmt.Errorf("marshalling circuits: %w", err)
	}

	var detailsJSON *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling change details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO design_changes (id, change_id, operation, circuits, errors, warnings, devices, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ChangeID, entry.Operation, string(circuitsJSON),
		entry.Errors, entry.Warnings, entry.Devices, detailsJSON,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting design change: %w", err)
	}

	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.CircuitID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(design_changes.circuits) WHERE value = ?)")
		args = append(args, filter.CircuitID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM design_changes %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting design changes: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, change_id, operation, circuits, errors, warnings, devices, details, created_at FROM design_changes %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying design changes: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var circuitsJSON string
		var detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.ChangeID, &e.Operation, &circuitsJSON,
			&e.Errors, &e.Warnings, &e.Devices, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning design change: %w", err)
		}

		if err := json.Unmarshal([]byte(circuitsJSON), &e.Circuits); err != nil {
			return nil, fmt.Errorf("decoding circuits of %s: %w", e.ID, err)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				e.Details = details
			}
		}

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing design change timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating design changes: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
