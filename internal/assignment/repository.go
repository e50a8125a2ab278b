package assignment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/database"
)

// Repository persists snapshots of the committed design.
// This abstraction allows for different implementations (SQLite, mock, etc.).
type Repository interface {
	// Save replaces the persisted design with the snapshot atomically.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the persisted design. An empty snapshot is returned when
	// nothing has been saved.
	Load(ctx context.Context) (Snapshot, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save replaces all devices, assignments and metadata in one SQL transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snap Snapshot) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return saveSnapshot(ctx, tx, snap)
	})
	if err != nil {
		return fmt.Errorf("saving design: %w", err)
	}
	return nil
}

func saveSnapshot(ctx context.Context, tx *sql.Tx, snap Snapshot) error {
	for _, stmt := range []string{
		"DELETE FROM device_metadata",
		"DELETE FROM circuit_assignments",
		"DELETE FROM fire_devices",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing design: %w", err)
		}
	}

	for _, rec := range snap.Records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fire_devices (
				id, name, model, level_name, zone, current_draw_a, wattage_w,
				unit_loads, address_slots, is_isolator, is_repeater, has_strobe, has_speaker
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Model, rec.LevelName, rec.Zone, rec.CurrentDrawA, rec.WattageW,
			rec.UnitLoads, rec.AddressSlots,
			boolToInt(rec.IsIsolator), boolToInt(rec.IsRepeater), boolToInt(rec.HasStrobe), boolToInt(rec.HasSpeaker),
		)
		if err != nil {
			return fmt.Errorf("inserting device %d: %w", rec.ID, err)
		}
	}

	for seq, a := range snap.Assignments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO circuit_assignments (
				element_id, seq, panel_id, circuit_id, address, address_slots, lock_state, conflicted
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ElementID, seq, a.PanelID, a.CircuitID, a.Address, a.AddressSlots,
			string(a.LockState), boolToInt(a.Conflicted),
		)
		if err != nil {
			return fmt.Errorf("inserting assignment %d: %w", a.ElementID, err)
		}
	}

	for id, md := range snap.Metadata {
		for k, v := range md {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO device_metadata (element_id, key, value) VALUES (?, ?, ?)",
				id, k, v,
			); err != nil {
				return fmt.Errorf("inserting metadata for %d: %w", id, err)
			}
		}
	}

	return nil
}

// Load reads the persisted design in assignment order.
func (r *SQLiteRepository) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Metadata: make(map[int64]circuit.Metadata)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.model, d.level_name, d.zone, d.current_draw_a, d.wattage_w,
			d.unit_loads, d.address_slots, d.is_isolator, d.is_repeater, d.has_strobe, d.has_speaker,
			a.panel_id, a.circuit_id, a.address, a.address_slots, a.lock_state, a.conflicted
		FROM circuit_assignments a
		JOIN fire_devices d ON d.id = a.element_id
		ORDER BY a.seq`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec circuit.DeviceRecord
		var a circuit.Assignment
		var isolator, repeater, strobe, speaker, conflicted int
		var lockState string
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Model, &rec.LevelName, &rec.Zone, &rec.CurrentDrawA, &rec.WattageW,
			&rec.UnitLoads, &rec.AddressSlots, &isolator, &repeater, &strobe, &speaker,
			&a.PanelID, &a.CircuitID, &a.Address, &a.AddressSlots, &lockState, &conflicted,
		); err != nil {
			return Snapshot{}, fmt.Errorf("scanning assignment: %w", err)
		}
		rec.IsIsolator = isolator != 0
		rec.IsRepeater = repeater != 0
		rec.HasStrobe = strobe != 0
		rec.HasSpeaker = speaker != 0

		a.ElementID = rec.ID
		a.LockState = circuit.LockState(lockState)
		a.Conflicted = conflicted != 0

		snap.Records = append(snap.Records, rec)
		snap.Assignments = append(snap.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterating assignments: %w", err)
	}

	mdRows, err := r.db.QueryContext(ctx, "SELECT element_id, key, value FROM device_metadata")
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying metadata: %w", err)
	}
	defer mdRows.Close()

	for mdRows.Next() {
		var (
			id         int64
			key, value string
		)
		if err := mdRows.Scan(&id, &key, &value); err != nil {
			return Snapshot{}, fmt.Errorf("scanning metadata: %w", err)
		}
		if snap.Metadata[id] == nil {
			snap.Metadata[id] = make(circuit.Metadata)
		}
		snap.Metadata[id][key] = value
	}
	if err := mdRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterating metadata: %w", err)
	}

	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
