package database

import (
	"context"
	"embed"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useMigrations swaps the package migration source for the duration of a test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS, MigrationsDir = fsys, dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_circuits") {
		t.Fatal("table test_circuits not created")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d, want 1 and 0", len(applied), len(pending))
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != "20260101_000000" {
		t.Errorf("SchemaVersion() = %q, want 20260101_000000", version)
	}

	// idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_circuits") {
		t.Error("table test_circuits should have been dropped")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", len(applied))
	}

	// nothing left to roll back
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateDown_MissingDownSQL(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260102_000000_one_way.up.sql": {Data: []byte("CREATE TABLE one_way (id INTEGER PRIMARY KEY) STRICT;")},
	}, ".")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err == nil {
		t.Error("MigrateDown() expected error for migration without down SQL")
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260102_000000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER PRIMARY KEY);")},
		"20260103_000000_bad.up.sql":  {Data: []byte("CREATE TABLE bad (id INTEGER PRIMARY KEY); INSERT INTO missing VALUES (1);")},
	}, ".")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error, got nil")
	}
	if !tableExists(t, db, "good") {
		t.Error("earlier migration should stay applied")
	}
	if tableExists(t, db, "bad") {
		t.Error("failed migration should be rolled back")
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
	version, err := db.SchemaVersion(context.Background())
	if err != nil || version != "" {
		t.Errorf("SchemaVersion() = %q, %v; want empty", version, err)
	}
}

func TestGetMigrationStatus_Pending(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.createMigrationsTable(ctx); err != nil {
		t.Fatalf("createMigrationsTable() error = %v", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Fatalf("applied = %d, pending = %d, want 0 and 1", len(applied), len(pending))
	}
	if pending[0].Name != "test_circuits" || pending[0].DownSQL == "" {
		t.Errorf("pending[0] = %+v", pending[0])
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"valid up migration", "20260301_090000_firealarm_design.up.sql", "20260301_090000", true, true},
		{"valid down migration", "20260301_090000_firealarm_design.down.sql", "20260301_090000", false, true},
		{"not sql file", "readme.txt", "", false, false},
		{"missing direction", "20260301_090000_firealarm_design.sql", "", false, false},
		{"invalid format", "invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_firealarm_design.up.sql", "firealarm_design"},
		{"20260301_090000_firealarm_design.down.sql", "firealarm_design"},
		{"20260101_000000_test_circuits.up.sql", "test_circuits"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
