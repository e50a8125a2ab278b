package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

const validSnapshot = `
catalog:
  SD-100:
    unit_loads: 2
  REP-2:
    address_slots: 3
devices:
  - id: 30
    name: Smoke L1
    model: SD-100
    level: L1
    zone: Z1
    current_draw_a: 0.0005
    metadata:
      vendor: acme
  - id: 10
    name: Strobe L1
    level: L1
    current_draw_a: 0.066
    has_strobe: true
  - id: 20
    model: REP-2
    level: L2
    current_draw_a: 0.002
    is_repeater: true
  - id: 40
    level: L2
    wattage_w: 2
    unit_loads: 6
`

func TestParse(t *testing.T) {
	snap, err := Parse([]byte(validSnapshot))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(snap.Devices) != 4 {
		t.Fatalf("Devices = %d, want 4", len(snap.Devices))
	}
	wantOrder := []int64{30, 10, 20, 40}
	for i, id := range wantOrder {
		if snap.Devices[i].ID != id {
			t.Errorf("Devices[%d].ID = %d, want %d", i, snap.Devices[i].ID, id)
		}
	}

	tests := []struct {
		name      string
		rec       circuit.DeviceRecord
		unitLoads int
		slots     int
	}{
		{"catalog unit loads", snap.Devices[0], 2, 1},
		{"derived from current", snap.Devices[1], circuit.UnitLoadsForCurrent(0.066), 1},
		{"catalog slots beat repeater default", snap.Devices[2], circuit.IsolatorUnitLoads, 3},
		{"explicit unit loads", snap.Devices[3], 6, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rec.UnitLoads != tt.unitLoads || tt.rec.AddressSlots != tt.slots {
				t.Errorf("record %d: UL %d slots %d, want UL %d slots %d",
					tt.rec.ID, tt.rec.UnitLoads, tt.rec.AddressSlots, tt.unitLoads, tt.slots)
			}
		})
	}

	if snap.Devices[0].LevelName != "L1" || snap.Devices[0].Zone != "Z1" {
		t.Errorf("grouping keys = %q/%q", snap.Devices[0].LevelName, snap.Devices[0].Zone)
	}
	if !snap.Devices[1].HasStrobe {
		t.Error("HasStrobe not parsed")
	}
	if snap.Metadata[30]["vendor"] != "acme" {
		t.Errorf("Metadata[30] = %v", snap.Metadata[30])
	}
	if _, ok := snap.Metadata[10]; ok {
		t.Error("device without metadata has an entry")
	}
}

func TestParse_JSON(t *testing.T) {
	data := `{"devices": [{"id": 1, "level": "L1", "current_draw_a": 0.05}]}`
	snap, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(snap.Devices) != 1 || snap.Devices[0].CurrentDrawA != 0.05 {
		t.Errorf("Devices = %+v", snap.Devices)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty document", "", ErrNoDevices},
		{"no devices", "catalog: {}\ndevices: []\n", ErrNoDevices},
		{"not yaml", "devices: [", ErrInvalidFile},
		{"unknown field", "devices:\n  - id: 1\n    current: 0.5\n", ErrInvalidFile},
		{"duplicate id", "devices:\n  - id: 1\n    current_draw_a: 0.1\n  - id: 1\n    current_draw_a: 0.2\n", ErrDuplicateDevice},
		{"negative current", "devices:\n  - id: 1\n    current_draw_a: -0.1\n", circuit.ErrInvalidDevice},
		{"zero id", "devices:\n  - id: 0\n    current_draw_a: 0.1\n", circuit.ErrInvalidDevice},
		{"nan current", "devices:\n  - id: 1\n    current_draw_a: .nan\n    wattage_w: 5\n  - id: 2\n    current_draw_a: 1.5\n", circuit.ErrInvalidDevice},
		{"infinite wattage", "devices:\n  - id: 1\n    wattage_w: .inf\n", circuit.ErrInvalidDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_TooLarge(t *testing.T) {
	if _, err := Parse(make([]byte, MaxFileSize+1)); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Parse() error = %v, want ErrFileTooLarge", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(validSnapshot), 0o600); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Devices) != 4 {
		t.Errorf("Devices = %d, want 4", len(snap.Devices))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestParseDevice(t *testing.T) {
	catalog := circuit.Catalog{"SD-100": {UnitLoads: 2}}

	rec, md, err := ParseDevice([]byte(`{"id": 7, "model": "SD-100", "level": "L3", "current_draw_a": 0.0005, "metadata": {"vendor": "acme"}}`), catalog)
	if err != nil {
		t.Fatalf("ParseDevice() error = %v", err)
	}
	if rec.ID != 7 || rec.LevelName != "L3" || rec.UnitLoads != 2 {
		t.Errorf("record = %+v", rec)
	}
	if md["vendor"] != "acme" {
		t.Errorf("metadata = %v", md)
	}

	if _, _, err := ParseDevice([]byte(`{"id": 0, "current_draw_a": 0.1}`), nil); !errors.Is(err, circuit.ErrInvalidDevice) {
		t.Errorf("ParseDevice(id 0) error = %v, want ErrInvalidDevice", err)
	}
	if _, _, err := ParseDevice([]byte(`{"id": 1, "colour": "red"}`), nil); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("ParseDevice(unknown field) error = %v, want ErrInvalidFile", err)
	}
}
