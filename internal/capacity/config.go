package capacity

import (
	"fmt"
	"math"
	"strings"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// Configuration defaults.
const (
	DefaultMaxDevicesPerCircuit = 127
	DefaultSpareFraction        = 0.20
	DefaultCircuitsPerPanel     = 4
	DefaultAddressSpaceMax      = 250
	DefaultStartAddress         = 1

	// minRuleKeys is the smallest key list that can exclude anything.
	minRuleKeys = 2
)

// MixRule forbids devices whose Field value is one of ExcludedKeys from
// sharing a circuit with a device carrying a different excluded key.
type MixRule struct {
	// Field is the device attribute compared: "level" (default) or "zone".
	Field        string
	ExcludedKeys []string
}

// field returns the rule field with the default applied.
func (r MixRule) field() string {
	if r.Field == "" {
		return circuit.FieldLevel
	}
	return r.Field
}

// matches returns the excluded key the record carries for this rule, if any.
func (r MixRule) matches(rec circuit.DeviceRecord) (string, bool) {
	key := rec.KeyFor(r.field())
	for _, k := range r.ExcludedKeys {
		if k == key {
			return key, true
		}
	}
	return "", false
}

// Configuration holds the static capacity limits for a design run.
//
// The core treats it as an opaque input; loading and persistence belong to
// the configuration service.
type Configuration struct {
	// Rated limits per circuit. Both are required.
	CurrentLimitA float64
	UnitLoadLimit int

	// MaxDevicesPerCircuit is a hard cap, not derated.
	MaxDevicesPerCircuit int

	// SpareFraction is held in reserve: derated = rated × (1 − SpareFraction).
	SpareFraction float64

	// CircuitsPerPanel controls how sealed circuits are packed onto panels.
	CircuitsPerPanel int

	// PanelCurrentLimitA is the rated current per panel. 0 disables the check.
	PanelCurrentLimitA float64

	// Address space per circuit.
	AddressSpaceMax int
	StartAddress    int

	// SegmentBy selects the grouping key: "level" (default), "zone" or "none".
	SegmentBy string

	MixExclusionRules []MixRule
}

// DefaultConfiguration returns a configuration with every defaulted field set.
// Current and unit load limits are left at zero and must be supplied.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxDevicesPerCircuit: DefaultMaxDevicesPerCircuit,
		SpareFraction:        DefaultSpareFraction,
		CircuitsPerPanel:     DefaultCircuitsPerPanel,
		AddressSpaceMax:      DefaultAddressSpaceMax,
		StartAddress:         DefaultStartAddress,
		SegmentBy:            circuit.FieldLevel,
	}
}

// DeratedCurrentA returns the usable current per circuit.
func (c Configuration) DeratedCurrentA() float64 {
	return c.CurrentLimitA * (1 - c.SpareFraction)
}

// DeratedUnitLoads returns the usable unit loads per circuit (fractional).
func (c Configuration) DeratedUnitLoads() float64 {
	return float64(c.UnitLoadLimit) * (1 - c.SpareFraction)
}

// DeratedPanelCurrentA returns the usable current per panel, 0 when disabled.
func (c Configuration) DeratedPanelCurrentA() float64 {
	return c.PanelCurrentLimitA * (1 - c.SpareFraction)
}

// sparePercent formats the spare fraction for messages.
func (c Configuration) sparePercent() string {
	return fmt.Sprintf("%.0f%% spare", c.SpareFraction*100)
}

// Validate checks the configuration and reports every problem found.
//
// Returns:
//   - error: wrapping ErrInvalidConfiguration, or nil if valid
func (c Configuration) Validate() error {
	var errs []string

	if !(c.CurrentLimitA > 0) || math.IsInf(c.CurrentLimitA, 1) {
		errs = append(errs, "current_limit_a must be positive")
	}
	if c.UnitLoadLimit <= 0 {
		errs = append(errs, "unit_load_limit must be positive")
	}
	if c.MaxDevicesPerCircuit <= 0 {
		errs = append(errs, "max_devices_per_circuit must be positive")
	}
	if !(c.SpareFraction >= 0 && c.SpareFraction < 1) {
		errs = append(errs, "spare_fraction must be in [0, 1)")
	}
	if c.CircuitsPerPanel <= 0 {
		errs = append(errs, "circuits_per_panel must be positive")
	}
	if !(c.PanelCurrentLimitA >= 0) || math.IsInf(c.PanelCurrentLimitA, 1) {
		errs = append(errs, "panel_current_limit_a must be a finite, non-negative number")
	}
	if c.AddressSpaceMax <= 0 {
		errs = append(errs, "address_space_max must be positive")
	}
	if c.StartAddress < 1 || (c.AddressSpaceMax > 0 && c.StartAddress > c.AddressSpaceMax) {
		errs = append(errs, "start_address must be within 1..address_space_max")
	}

	switch c.SegmentBy {
	case circuit.FieldLevel, circuit.FieldZone, circuit.FieldNone:
	default:
		errs = append(errs, fmt.Sprintf("segment_by %q must be level, zone or none", c.SegmentBy))
	}

	for i, rule := range c.MixExclusionRules {
		switch rule.field() {
		case circuit.FieldLevel, circuit.FieldZone:
		default:
			errs = append(errs, fmt.Sprintf("mix_exclusion_rules[%d].field %q must be level or zone", i, rule.Field))
		}
		if len(rule.ExcludedKeys) < minRuleKeys {
			errs = append(errs, fmt.Sprintf("mix_exclusion_rules[%d] must list at least %d keys", i, minRuleKeys))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(errs, "; "))
	}
	return nil
}
