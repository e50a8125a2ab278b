package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// MaxFileSize is the maximum allowed snapshot size (10MB).
const MaxFileSize = 10 * 1024 * 1024

// Snapshot is a parsed device snapshot, ready for a design run.
type Snapshot struct {
	// Devices in document order.
	Devices []circuit.DeviceRecord

	// Metadata holds per-device vendor attributes keyed by device ID.
	Metadata map[int64]circuit.Metadata

	Catalog circuit.Catalog
}

// document is the on-disk layout.
type document struct {
	Catalog circuit.Catalog `yaml:"catalog"`
	Devices []deviceEntry   `yaml:"devices"`
}

type deviceEntry struct {
	ID           int64             `yaml:"id"`
	Name         string            `yaml:"name"`
	Model        string            `yaml:"model"`
	Level        string            `yaml:"level"`
	Zone         string            `yaml:"zone"`
	CurrentDrawA float64           `yaml:"current_draw_a"`
	WattageW     float64           `yaml:"wattage_w"`
	UnitLoads    int               `yaml:"unit_loads"`
	AddressSlots int               `yaml:"address_slots"`
	IsIsolator   bool              `yaml:"is_isolator"`
	IsRepeater   bool              `yaml:"is_repeater"`
	HasStrobe    bool              `yaml:"has_strobe"`
	HasSpeaker   bool              `yaml:"has_speaker"`
	Metadata     map[string]string `yaml:"metadata"`
}

func (e deviceEntry) spec() circuit.DeviceSpec {
	return circuit.DeviceSpec{
		ID:           e.ID,
		Name:         e.Name,
		Model:        e.Model,
		LevelName:    e.Level,
		Zone:         e.Zone,
		CurrentDrawA: e.CurrentDrawA,
		WattageW:     e.WattageW,
		UnitLoads:    e.UnitLoads,
		AddressSlots: e.AddressSlots,
		IsIsolator:   e.IsIsolator,
		IsRepeater:   e.IsRepeater,
		HasStrobe:    e.HasStrobe,
		HasSpeaker:   e.HasSpeaker,
	}
}

// Load reads and parses a snapshot file.
//
// Parameters:
//   - path: Path to a YAML or JSON snapshot
//
// Returns:
//   - *Snapshot: Parsed devices in file order
//   - error: If the file cannot be read or parsed
func Load(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return Parse(data)
}

// Parse parses a snapshot from a byte slice. Unknown fields are rejected so
// a misspelt attribute cannot silently zero a device's load.
//
// Returns:
//   - *Snapshot: Parsed devices in document order
//   - error: ErrFileTooLarge, ErrNoDevices, or wrapping ErrInvalidFile,
//     ErrDuplicateDevice or circuit.ErrInvalidDevice
func Parse(data []byte) (*Snapshot, error) {
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoDevices
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err) //nolint:errorlint // yaml errors are not part of the contract
	}
	if len(doc.Devices) == 0 {
		return nil, ErrNoDevices
	}

	snap := &Snapshot{
		Devices:  make([]circuit.DeviceRecord, 0, len(doc.Devices)),
		Metadata: make(map[int64]circuit.Metadata),
		Catalog:  doc.Catalog,
	}
	seen := make(map[int64]int, len(doc.Devices))

	for i, entry := range doc.Devices {
		if first, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: %d at devices[%d] and devices[%d]", ErrDuplicateDevice, entry.ID, first, i)
		}
		seen[entry.ID] = i

		rec := circuit.NewDeviceRecord(entry.spec(), doc.Catalog)
		if err := circuit.ValidateDeviceRecord(rec); err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		snap.Devices = append(snap.Devices, rec)

		if len(entry.Metadata) > 0 {
			snap.Metadata[entry.ID] = circuit.Metadata(entry.Metadata).Clone()
		}
	}

	return snap, nil
}

// ParseDevice parses a single device entry in the snapshot format.
//
// Defaults are derived as for a full snapshot; catalog may be nil.
//
// Returns:
//   - circuit.DeviceRecord: the validated record
//   - circuit.Metadata: vendor attributes, nil when absent
//   - error: ErrInvalidFile or wrapping circuit.ErrInvalidDevice
func ParseDevice(data []byte, catalog circuit.Catalog) (circuit.DeviceRecord, circuit.Metadata, error) {
	var entry deviceEntry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entry); err != nil {
		return circuit.DeviceRecord{}, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err) //nolint:errorlint // yaml errors are not part of the contract
	}

	rec := circuit.NewDeviceRecord(entry.spec(), catalog)
	if err := circuit.ValidateDeviceRecord(rec); err != nil {
		return circuit.DeviceRecord{}, nil, err
	}

	var md circuit.Metadata
	if len(entry.Metadata) > 0 {
		md = circuit.Metadata(entry.Metadata).Clone()
	}
	return rec, md, nil
}
