package assignment

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-firealarm/migrations"
)

// setupTestRepo opens a migrated SQLite database in a temp directory.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "design.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	isolator := circuit.NewDeviceRecord(circuit.DeviceSpec{
		ID: 11, Name: "ISO L2", LevelName: "L2", Zone: "Z1", CurrentDrawA: 0.002, IsIsolator: true,
	}, nil)
	strobe := circuit.NewDeviceRecord(circuit.DeviceSpec{
		ID: 7, Name: "Strobe 7", Model: "ST-15", LevelName: "L2", CurrentDrawA: 0.066, HasStrobe: true,
	}, nil)

	snap := Snapshot{
		Records: []circuit.DeviceRecord{isolator, strobe},
		Assignments: []circuit.Assignment{
			{ElementID: 11, PanelID: "PNL-01", CircuitID: "PNL-01-IDNAC-02", Address: 4, AddressSlots: 2, LockState: circuit.LockLocked},
			{ElementID: 7, PanelID: "PNL-01", CircuitID: "PNL-01-IDNAC-02", Address: 1, AddressSlots: 1, LockState: circuit.LockAuto, Conflicted: true},
		},
		Metadata: map[int64]circuit.Metadata{7: {"candela": "15"}},
	}

	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(got.Assignments) != 2 {
		t.Fatalf("Load() returned %d assignments, want 2", len(got.Assignments))
	}
	for i := range snap.Assignments {
		if got.Assignments[i] != snap.Assignments[i] {
			t.Errorf("assignment %d = %+v, want %+v", i, got.Assignments[i], snap.Assignments[i])
		}
		if got.Records[i] != snap.Records[i] {
			t.Errorf("record %d = %+v, want %+v", i, got.Records[i], snap.Records[i])
		}
	}
	if got.Metadata[7]["candela"] != "15" {
		t.Errorf("Metadata[7] = %v", got.Metadata[7])
	}
}

func TestSQLiteRepository_SaveReplaces(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	store := seedStore(t, 1, 2, 3)
	if err := repo.Save(ctx, store.Snapshot()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Update(func(tx *Tx) error { return tx.Remove(2) }); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Save(ctx, store.Snapshot()); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Assignments) != 2 || got.Assignments[0].ElementID != 1 || got.Assignments[1].ElementID != 3 {
		t.Errorf("Load() = %+v, want elements [1 3]", got.Assignments)
	}

	restored := NewStore(250)
	if err := restored.Restore(got); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("Len() = %d, want 2", restored.Len())
	}
}

func TestSQLiteRepository_LoadEmpty(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Assignments) != 0 || len(got.Records) != 0 {
		t.Errorf("Load() on empty database = %+v", got)
	}
}
