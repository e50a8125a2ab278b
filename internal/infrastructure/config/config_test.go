package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalCapacity = `
capacity:
  current_limit_a: 3.0
  unit_load_limit: 8
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
capacity:
  current_limit_a: 2.4
  unit_load_limit: 2
  max_devices_per_circuit: 40
  spare_fraction: 0.25
  segment_by: zone
  mix_exclusion_rules:
    - field: level
      excluded_keys: ["L1", "L2"]
snapshot:
  path: "./devices.yaml"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.Capacity.CurrentLimitA != 2.4 {
		t.Errorf("Capacity.CurrentLimitA = %v, want 2.4", cfg.Capacity.CurrentLimitA)
	}
	if cfg.Capacity.MaxDevicesPerCircuit != 40 {
		t.Errorf("Capacity.MaxDevicesPerCircuit = %d, want 40", cfg.Capacity.MaxDevicesPerCircuit)
	}
	if cfg.Capacity.SegmentBy != "zone" {
		t.Errorf("Capacity.SegmentBy = %q, want zone", cfg.Capacity.SegmentBy)
	}
	if len(cfg.Capacity.MixExclusionRules) != 1 || len(cfg.Capacity.MixExclusionRules[0].ExcludedKeys) != 2 {
		t.Errorf("Capacity.MixExclusionRules = %+v", cfg.Capacity.MixExclusionRules)
	}
	// unset keys keep their defaults
	if cfg.Capacity.AddressSpaceMax != 250 {
		t.Errorf("Capacity.AddressSpaceMax = %d, want 250", cfg.Capacity.AddressSpaceMax)
	}
	if cfg.Capacity.CircuitsPerPanel != 4 {
		t.Errorf("Capacity.CircuitsPerPanel = %d, want 4", cfg.Capacity.CircuitsPerPanel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
` + minimalCapacity

	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "site.id is required") {
		t.Errorf("Load() error = %v, want site.id message", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(_ *Config) {},
		},
		{
			name:    "missing current limit",
			modify:  func(c *Config) { c.Capacity.CurrentLimitA = 0 },
			wantErr: "capacity.current_limit_a is required",
		},
		{
			name:    "missing unit load limit",
			modify:  func(c *Config) { c.Capacity.UnitLoadLimit = 0 },
			wantErr: "capacity.unit_load_limit is required",
		},
		{
			name:    "invalid QoS",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos must be 0, 1, or 2",
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port must be between 1 and 65535",
		},
		{
			name:    "missing database path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name: "influxdb enabled without url",
			modify: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: "influxdb.url is required",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format must be json or text",
		},
		{
			name:    "run on startup without snapshot",
			modify:  func(c *Config) { c.Snapshot.RunOnStartup = true },
			wantErr: "snapshot.path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Capacity.CurrentLimitA = 3.0
			cfg.Capacity.UnitLoadLimit = 8
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"site.id", "capacity.current_limit_a", "capacity.unit_load_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestGetTimeouts(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_DATABASE_PATH", "/env/design.db")
	t.Setenv("GRAYLOGIC_API_PORT", "9090")
	t.Setenv("GRAYLOGIC_CAPACITY_SPARE_FRACTION", "0.1")
	t.Setenv("GRAYLOGIC_SNAPSHOT_PATH", "/env/devices.yaml")

	cfg, err := Load(writeConfig(t, minimalCapacity))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/env/design.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Capacity.SpareFraction != 0.1 {
		t.Errorf("Capacity.SpareFraction = %v, want 0.1", cfg.Capacity.SpareFraction)
	}
	if cfg.Snapshot.Path != "/env/devices.yaml" {
		t.Errorf("Snapshot.Path = %q, want env override", cfg.Snapshot.Path)
	}
}

func TestEnvOverrides_InvalidNumberIgnored(t *testing.T) {
	t.Setenv("GRAYLOGIC_API_PORT", "not-a-port")

	cfg, err := Load(writeConfig(t, minimalCapacity))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Capacity.SpareFraction != 0.20 {
		t.Errorf("default SpareFraction = %v, want 0.20", cfg.Capacity.SpareFraction)
	}
	if cfg.Capacity.MaxDevicesPerCircuit != 127 {
		t.Errorf("default MaxDevicesPerCircuit = %d, want 127", cfg.Capacity.MaxDevicesPerCircuit)
	}
	if cfg.Capacity.StartAddress != 1 {
		t.Errorf("default StartAddress = %d, want 1", cfg.Capacity.StartAddress)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("optional integrations must be disabled by default")
	}
}
