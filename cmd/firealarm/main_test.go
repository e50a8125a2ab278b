package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/audit"
	"github.com/nerrad567/gray-logic-firealarm/internal/capacity"
	"github.com/nerrad567/gray-logic-firealarm/internal/design"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/logging"
)

const testSnapshot = `
devices:
  - {id: 1, level: L1, current_draw_a: 0.3}
  - {id: 2, level: L1, current_draw_a: 0.3}
  - {id: 3, level: L2, current_draw_a: 0.3}
`

// writeConfig writes a config with MQTT and InfluxDB disabled and points
// GRAYLOGIC_CONFIG at it.
func writeConfig(t *testing.T, body string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingCapacityLimits verifies run refuses to start without limits.
func TestRun_MissingCapacityLimits(t *testing.T) {
	writeConfig(t, `
site:
  id: test-site
database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"
logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without capacity limits")
	}
}

// TestRun_StartupSnapshotAndShutdown runs a startup snapshot, shuts down on
// context expiry and checks the design was persisted.
func TestRun_StartupSnapshotAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	snapPath := filepath.Join(tmpDir, "devices.yaml")
	if err := os.WriteFile(snapPath, []byte(testSnapshot), 0600); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	writeConfig(t, `
site:
  id: test-site
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
  output: stdout
api:
  host: "127.0.0.1"
  port: 18093
capacity:
  current_limit_a: 1.0
  unit_load_limit: 10000
snapshot:
  path: "`+snapPath+`"
  run_on_startup: true
`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()

	snap, err := assignment.NewSQLiteRepository(db.DB).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Assignments) != 3 {
		t.Errorf("persisted %d assignments, want 3", len(snap.Assignments))
	}

	changes, err := audit.NewSQLiteRepository(db.DB).List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if changes.Total != 1 || changes.Entries[0].Operation != "run" {
		t.Errorf("change history = %+v, want one run", changes)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestCapacityConfig(t *testing.T) {
	cfg := capacityConfig(config.CapacityConfig{
		CurrentLimitA:        3.0,
		UnitLoadLimit:        1000,
		MaxDevicesPerCircuit: 64,
		SpareFraction:        0.25,
		CircuitsPerPanel:     8,
		AddressSpaceMax:      127,
		StartAddress:         1,
		SegmentBy:            "zone",
		MixExclusionRules: []config.MixRuleConfig{
			{Field: "level", ExcludedKeys: []string{"B1", "L1"}},
		},
	})

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.DeratedCurrentA() != 2.25 {
		t.Errorf("DeratedCurrentA() = %v, want 2.25", cfg.DeratedCurrentA())
	}
	if len(cfg.MixExclusionRules) != 1 || cfg.MixExclusionRules[0].ExcludedKeys[1] != "L1" {
		t.Errorf("MixExclusionRules = %+v", cfg.MixExclusionRules)
	}

	if err := capacityConfig(config.CapacityConfig{}).Validate(); !errors.Is(err, capacity.ErrInvalidConfiguration) {
		t.Errorf("empty capacity config error = %v", err)
	}
}

func TestRunCommandHandler_RejectsBadPayload(t *testing.T) {
	cfg := capacity.DefaultConfiguration()
	cfg.CurrentLimitA = 1.0
	cfg.UnitLoadLimit = 10000
	svc, err := design.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	handler := runCommandHandler(context.Background(), svc, logging.Default())
	if err := handler("graylogic/firealarm/test/command/run", []byte("devices: [")); err == nil {
		t.Error("handler accepted a malformed snapshot")
	}
	if err := handler("graylogic/firealarm/test/command/run", []byte(testSnapshot)); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if n := len(svc.Assignments()); n != 3 {
		t.Errorf("assignments after command = %d, want 3", n)
	}
}
