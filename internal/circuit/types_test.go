package circuit

import (
	"errors"
	"math"
	"testing"
)

func TestUnitLoadsForCurrent(t *testing.T) {
	tests := []struct {
		name     string
		currentA float64
		want     int
	}{
		{name: "zero current", currentA: 0, want: 1},
		{name: "negative current", currentA: -1, want: 1},
		{name: "exact multiple", currentA: 0.0008, want: 1},
		{name: "tenth of an amp", currentA: 0.1, want: 125},
		{name: "rounds up", currentA: 0.0009, want: 2},
		{name: "one amp", currentA: 1.0, want: 1250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnitLoadsForCurrent(tt.currentA); got != tt.want {
				t.Errorf("UnitLoadsForCurrent(%v) = %d, want %d", tt.currentA, got, tt.want)
			}
		})
	}
}

func TestNewDeviceRecord(t *testing.T) {
	catalog := Catalog{
		"SPK-15": {UnitLoads: 3},
		"ISO-2":  {UnitLoads: 6, AddressSlots: 3},
	}

	tests := []struct {
		name      string
		spec      DeviceSpec
		wantUL    int
		wantSlots int
	}{
		{
			name:      "derived from current",
			spec:      DeviceSpec{ID: 1, CurrentDrawA: 0.004},
			wantUL:    5,
			wantSlots: 1,
		},
		{
			name:      "isolator fixed rating",
			spec:      DeviceSpec{ID: 2, CurrentDrawA: 0.5, IsIsolator: true},
			wantUL:    IsolatorUnitLoads,
			wantSlots: IsolatorAddressSlots,
		},
		{
			name:      "repeater fixed rating",
			spec:      DeviceSpec{ID: 3, IsRepeater: true},
			wantUL:    IsolatorUnitLoads,
			wantSlots: IsolatorAddressSlots,
		},
		{
			name:      "catalog lookup",
			spec:      DeviceSpec{ID: 4, Model: "SPK-15", CurrentDrawA: 0.1},
			wantUL:    3,
			wantSlots: 1,
		},
		{
			name:      "catalog beats isolator default",
			spec:      DeviceSpec{ID: 5, Model: "ISO-2", IsIsolator: true},
			wantUL:    6,
			wantSlots: 3,
		},
		{
			name:      "explicit override wins",
			spec:      DeviceSpec{ID: 6, Model: "SPK-15", UnitLoads: 9, AddressSlots: 2},
			wantUL:    9,
			wantSlots: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewDeviceRecord(tt.spec, catalog)
			if rec.UnitLoads != tt.wantUL {
				t.Errorf("UnitLoads = %d, want %d", rec.UnitLoads, tt.wantUL)
			}
			if rec.AddressSlots != tt.wantSlots {
				t.Errorf("AddressSlots = %d, want %d", rec.AddressSlots, tt.wantSlots)
			}
			if err := ValidateDeviceRecord(rec); err != nil {
				t.Errorf("ValidateDeviceRecord() error = %v", err)
			}
		})
	}
}

func TestDeviceRecord_Eligible(t *testing.T) {
	if (DeviceRecord{}).Eligible() {
		t.Error("zero record should not be eligible")
	}
	if !(DeviceRecord{WattageW: 1}).Eligible() {
		t.Error("wattage-only record should be eligible")
	}
	if !(DeviceRecord{CurrentDrawA: 0.01}).Eligible() {
		t.Error("current-only record should be eligible")
	}
}

func TestAssignment_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Assignment
		want bool
	}{
		{
			name: "same single address",
			a:    Assignment{Address: 5, AddressSlots: 1},
			b:    Assignment{Address: 5, AddressSlots: 1},
			want: true,
		},
		{
			name: "adjacent blocks",
			a:    Assignment{Address: 5, AddressSlots: 2},
			b:    Assignment{Address: 7, AddressSlots: 1},
			want: false,
		},
		{
			name: "multi-slot tail overlap",
			a:    Assignment{Address: 5, AddressSlots: 2},
			b:    Assignment{Address: 6, AddressSlots: 1},
			want: true,
		},
		{
			name: "unassigned never overlaps",
			a:    Assignment{Address: 0, AddressSlots: 2},
			b:    Assignment{Address: 1, AddressSlots: 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(&tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(&tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssignment_LastAddress(t *testing.T) {
	a := &Assignment{Address: 10, AddressSlots: 2}
	if got := a.LastAddress(); got != 11 {
		t.Errorf("LastAddress() = %d, want 11", got)
	}
	a.Address = 0
	if got := a.LastAddress(); got != 0 {
		t.Errorf("LastAddress() unassigned = %d, want 0", got)
	}
}

func TestBlockFits(t *testing.T) {
	tests := []struct {
		name        string
		addr, slots int
		want        bool
	}{
		{"first address", 1, 1, true},
		{"last slot at max", 249, 2, true},
		{"one past max", 250, 2, false},
		{"zero address", 0, 1, false},
		{"zero slots", 5, 0, false},
		{"huge address wraps when summed", math.MaxInt, 2, false},
		{"huge single slot", math.MaxInt, 1, false},
		{"more slots than space", 1, 251, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlockFits(tt.addr, tt.slots, 250); got != tt.want {
				t.Errorf("BlockFits(%d, %d, 250) = %v, want %v", tt.addr, tt.slots, got, tt.want)
			}
		})
	}

	a := &Assignment{Address: math.MaxInt, AddressSlots: 2}
	if a.FitsWithin(250) {
		t.Error("FitsWithin() accepted an address past max")
	}
}

func TestValidateDeviceRecord_NonFinite(t *testing.T) {
	valid := NewDeviceRecord(DeviceSpec{ID: 1, CurrentDrawA: 0.1}, nil)
	if err := ValidateDeviceRecord(valid); err != nil {
		t.Fatalf("ValidateDeviceRecord(valid) error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DeviceRecord)
	}{
		{"nan current", func(r *DeviceRecord) { r.CurrentDrawA = math.NaN() }},
		{"infinite current", func(r *DeviceRecord) { r.CurrentDrawA = math.Inf(1) }},
		{"nan wattage", func(r *DeviceRecord) { r.WattageW = math.NaN() }},
		{"negative infinite wattage", func(r *DeviceRecord) { r.WattageW = math.Inf(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			if err := ValidateDeviceRecord(rec); !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("error = %v, want ErrInvalidDevice", err)
			}
		})
	}
}

func TestLockState(t *testing.T) {
	for _, s := range AllLockStates() {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if LockState("frozen").Valid() {
		t.Error("unknown lock state should be invalid")
	}
	if LockAuto.IsFixed() {
		t.Error("auto should not be fixed")
	}
	if !LockLocked.IsFixed() || !LockManual.IsFixed() {
		t.Error("locked and manual should be fixed")
	}
}

func TestOutcome(t *testing.T) {
	o := Success()
	if !o.OK() {
		t.Fatal("Success() should be OK")
	}

	o.Add(NewWarning(CodeDeviceIneligible, "no load", 3))
	if !o.OK() {
		t.Error("warnings must not fail an outcome")
	}

	o.Add(NewIssue(CodeCapCurrentExceeded, "too much current", 2, 1))
	if o.OK() {
		t.Error("error issue should fail the outcome")
	}
	if !o.Has(CodeCapCurrentExceeded) {
		t.Error("Has(CAP_CURRENT_EXCEEDED) = false")
	}
	if o.Reason() != "too much current" {
		t.Errorf("Reason() = %q", o.Reason())
	}
	ids := o.Issues[1].AffectedElementIDs
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("AffectedElementIDs = %v, want sorted [1 2]", ids)
	}
}

func TestCircuitIDs(t *testing.T) {
	id := CircuitID(PanelID(1), CircuitSuffix(3))
	if id != "PNL-01-IDNAC-03" {
		t.Fatalf("CircuitID = %q", id)
	}

	panel, err := PanelOf(id)
	if err != nil {
		t.Fatalf("PanelOf() error = %v", err)
	}
	if panel != "PNL-01" {
		t.Errorf("PanelOf() = %q, want PNL-01", panel)
	}

	if _, err := PanelOf("IDNAC-03"); !errors.Is(err, ErrInvalidCircuitID) {
		t.Errorf("PanelOf(no panel) error = %v, want ErrInvalidCircuitID", err)
	}
}

func TestValidateAssignment(t *testing.T) {
	valid := &Assignment{ElementID: 1, CircuitID: "PNL-01-IDNAC-01", AddressSlots: 1, LockState: LockAuto}
	if err := ValidateAssignment(valid); err != nil {
		t.Fatalf("ValidateAssignment(valid) error = %v", err)
	}

	bad := valid.Clone()
	bad.LockState = "pinned"
	if err := ValidateAssignment(bad); !errors.Is(err, ErrInvalidLockState) {
		t.Errorf("error = %v, want ErrInvalidLockState", err)
	}

	bad = valid.Clone()
	bad.Address = -1
	if err := ValidateAssignment(bad); !errors.Is(err, ErrInvalidAssignment) {
		t.Errorf("error = %v, want ErrInvalidAssignment", err)
	}

	if err := ValidateAssignment(nil); !errors.Is(err, ErrInvalidAssignment) {
		t.Errorf("nil error = %v, want ErrInvalidAssignment", err)
	}
}
