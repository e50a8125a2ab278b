package circuit

import "math"

// Unit load conversion constants.
const (
	// MilliampsPerUnitLoad is the standby current represented by one unit load.
	MilliampsPerUnitLoad = 0.8

	// IsolatorUnitLoads is the fixed unit load rating of isolators and repeaters.
	IsolatorUnitLoads = 4

	// IsolatorAddressSlots is the number of contiguous addresses an isolator or
	// repeater occupies.
	IsolatorAddressSlots = 2

	// milliampsPerAmp converts amps to milliamps.
	milliampsPerAmp = 1000

	// roundingTolerance absorbs float error before rounding up (e.g. 0.1A → 125 UL, not 126).
	roundingTolerance = 1e-9
)

// DeviceRecord is the immutable snapshot of one device's electrical and
// classification attributes.
//
// Records are produced by the snapshot provider and never change during a
// design run. Use NewDeviceRecord to derive UnitLoads and AddressSlots.
type DeviceRecord struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Grouping keys used for circuit segmentation and mix rules.
	LevelName string `json:"level_name" yaml:"level_name"`
	Zone      string `json:"zone,omitempty" yaml:"zone,omitempty"`

	// Electrical attributes. At least one of CurrentDrawA or WattageW must be
	// positive for the device to be eligible for allocation.
	CurrentDrawA float64 `json:"current_draw_a" yaml:"current_draw_a"`
	WattageW     float64 `json:"wattage_w" yaml:"wattage_w"`
	UnitLoads    int     `json:"unit_loads" yaml:"unit_loads"`
	AddressSlots int     `json:"address_slots" yaml:"address_slots"`

	// Classification flags. Used by mix rules and downstream calculators.
	IsIsolator bool `json:"is_isolator,omitempty" yaml:"is_isolator,omitempty"`
	IsRepeater bool `json:"is_repeater,omitempty" yaml:"is_repeater,omitempty"`
	HasStrobe  bool `json:"has_strobe,omitempty" yaml:"has_strobe,omitempty"`
	HasSpeaker bool `json:"has_speaker,omitempty" yaml:"has_speaker,omitempty"`
}

// Eligible reports whether the device draws any load and can be allocated.
func (d DeviceRecord) Eligible() bool {
	return d.CurrentDrawA > 0 || d.WattageW > 0
}

// Slots returns the number of address slots the device needs (minimum 1).
func (d DeviceRecord) Slots() int {
	if d.AddressSlots < 1 {
		return 1
	}
	return d.AddressSlots
}

// KeyFor returns the grouping key for the named field ("level" or "zone").
// Any other field yields the empty string so every device shares one group.
func (d DeviceRecord) KeyFor(field string) string {
	switch field {
	case FieldLevel:
		return d.LevelName
	case FieldZone:
		return d.Zone
	default:
		return ""
	}
}

// Grouping fields for segmentation and mix rules.
const (
	FieldLevel = "level"
	FieldZone  = "zone"
	FieldNone  = "none"
)

// DeviceSpec is the raw input used to build a DeviceRecord.
// Zero UnitLoads and AddressSlots mean "derive".
type DeviceSpec struct {
	ID           int64
	Name         string
	Model        string
	LevelName    string
	Zone         string
	CurrentDrawA float64
	WattageW     float64
	UnitLoads    int
	AddressSlots int
	IsIsolator   bool
	IsRepeater   bool
	HasStrobe    bool
	HasSpeaker   bool
}

// CatalogEntry holds per-model overrides from a device catalog.
type CatalogEntry struct {
	UnitLoads    int `json:"unit_loads" yaml:"unit_loads"`
	AddressSlots int `json:"address_slots" yaml:"address_slots"`
}

// Catalog maps a device model to its catalog entry.
type Catalog map[string]CatalogEntry

// NewDeviceRecord builds a record from a spec, deriving unit loads and slots.
//
// Precedence for unit loads: explicit spec value, catalog entry, the fixed
// isolator/repeater rating, then conversion from current draw. Slots follow the
// same order with 2 for isolators/repeaters and 1 otherwise.
func NewDeviceRecord(spec DeviceSpec, catalog Catalog) DeviceRecord {
	rec := DeviceRecord{
		ID:           spec.ID,
		Name:         spec.Name,
		Model:        spec.Model,
		LevelName:    spec.LevelName,
		Zone:         spec.Zone,
		CurrentDrawA: spec.CurrentDrawA,
		WattageW:     spec.WattageW,
		IsIsolator:   spec.IsIsolator,
		IsRepeater:   spec.IsRepeater,
		HasStrobe:    spec.HasStrobe,
		HasSpeaker:   spec.HasSpeaker,
	}

	entry, inCatalog := catalog[spec.Model]
	multiSlot := spec.IsIsolator || spec.IsRepeater

	switch {
	case spec.UnitLoads > 0:
		rec.UnitLoads = spec.UnitLoads
	case inCatalog && entry.UnitLoads > 0:
		rec.UnitLoads = entry.UnitLoads
	case multiSlot:
		rec.UnitLoads = IsolatorUnitLoads
	default:
		rec.UnitLoads = UnitLoadsForCurrent(spec.CurrentDrawA)
	}

	switch {
	case spec.AddressSlots > 0:
		rec.AddressSlots = spec.AddressSlots
	case inCatalog && entry.AddressSlots > 0:
		rec.AddressSlots = entry.AddressSlots
	case multiSlot:
		rec.AddressSlots = IsolatorAddressSlots
	default:
		rec.AddressSlots = 1
	}

	return rec
}

// UnitLoadsForCurrent converts a current draw in amps to unit loads,
// rounding up. The result is never less than 1.
func UnitLoadsForCurrent(currentA float64) int {
	if !(currentA > 0) || math.IsInf(currentA, 1) {
		return 1
	}
	ul := int(math.Ceil(currentA*milliampsPerAmp/MilliampsPerUnitLoad - roundingTolerance))
	if ul < 1 {
		return 1
	}
	return ul
}

// Metadata holds open-ended vendor attributes for one device.
// It lives in a side-table keyed by element ID, never inline on the record.
type Metadata map[string]string

// Clone returns an independent copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	cpy := make(Metadata, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}

// LockState controls which automated operations may move an address.
type LockState string

// Lock states.
const (
	// LockAuto addresses are owned by the engine and may be moved.
	LockAuto LockState = "auto"

	// LockLocked addresses were pinned by the user.
	LockLocked LockState = "locked"

	// LockManual addresses were typed in directly by the user.
	LockManual LockState = "manual"
)

// AllLockStates returns every valid lock state.
func AllLockStates() []LockState {
	return []LockState{LockAuto, LockLocked, LockManual}
}

// Valid reports whether s is a recognised lock state.
func (s LockState) Valid() bool {
	switch s {
	case LockAuto, LockLocked, LockManual:
		return true
	default:
		return false
	}
}

// IsFixed reports whether automated operations must leave the address alone.
func (s LockState) IsFixed() bool {
	return s == LockLocked || s == LockManual
}

// Assignment places one device on a panel and circuit with an address.
//
// Address 0 means unassigned. When positive, the device occupies AddressSlots
// consecutive addresses starting at Address.
type Assignment struct {
	ElementID    int64     `json:"element_id"`
	PanelID      string    `json:"panel_id"`
	CircuitID    string    `json:"circuit_id"`
	Address      int       `json:"address"`
	AddressSlots int       `json:"address_slots"`
	LockState    LockState `json:"lock_state"`

	// Conflicted flags an overlap that is pending resolution.
	Conflicted bool `json:"conflicted,omitempty"`
}

// NewAssignment creates an unaddressed auto assignment for a device.
func NewAssignment(rec DeviceRecord, panelID, circuitID string) *Assignment {
	return &Assignment{
		ElementID:    rec.ID,
		PanelID:      panelID,
		CircuitID:    circuitID,
		AddressSlots: rec.Slots(),
		LockState:    LockAuto,
	}
}

// IsAssigned reports whether the assignment holds an address.
func (a *Assignment) IsAssigned() bool {
	return a.Address > 0
}

// Slots returns the occupied slot count (minimum 1).
func (a *Assignment) Slots() int {
	if a.AddressSlots < 1 {
		return 1
	}
	return a.AddressSlots
}

// LastAddress returns the final address occupied, or 0 when unassigned.
func (a *Assignment) LastAddress() int {
	if !a.IsAssigned() {
		return 0
	}
	return a.Address + a.Slots() - 1
}

// FitsWithin reports whether the whole block lies in [1, max]. The bound is
// compared without summing so huge addresses cannot wrap around.
func (a *Assignment) FitsWithin(max int) bool {
	return BlockFits(a.Address, a.Slots(), max)
}

// BlockFits reports whether a block of slots starting at addr lies in [1, max].
func BlockFits(addr, slots, max int) bool {
	return addr >= 1 && slots >= 1 && slots <= max && addr <= max-slots+1
}

// Overlaps reports whether both assignments hold addresses whose ranges intersect.
func (a *Assignment) Overlaps(other *Assignment) bool {
	if !a.IsAssigned() || !other.IsAssigned() {
		return false
	}
	return a.Address <= other.LastAddress() && other.Address <= a.LastAddress()
}

// Clone returns an independent copy of the assignment.
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}
