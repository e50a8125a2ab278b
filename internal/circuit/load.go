package circuit

import (
	"fmt"
	"strings"
)

// Load is the computed electrical load on a circuit or panel.
type Load struct {
	CurrentA    float64 `json:"current_a"`
	UnitLoads   int     `json:"unit_loads"`
	DeviceCount int     `json:"device_count"`
	WattageW    float64 `json:"wattage_w"`
}

// Add accumulates one device into the load.
func (l *Load) Add(rec DeviceRecord) {
	l.CurrentA += rec.CurrentDrawA
	l.UnitLoads += rec.UnitLoads
	l.WattageW += rec.WattageW
	l.DeviceCount++
}

// Plus returns the sum of two loads.
func (l Load) Plus(other Load) Load {
	return Load{
		CurrentA:    l.CurrentA + other.CurrentA,
		UnitLoads:   l.UnitLoads + other.UnitLoads,
		DeviceCount: l.DeviceCount + other.DeviceCount,
		WattageW:    l.WattageW + other.WattageW,
	}
}

// LoadOf sums the given device records.
func LoadOf(records []DeviceRecord) Load {
	var l Load
	for _, r := range records {
		l.Add(r)
	}
	return l
}

// LimitingFactor names the constraint that governs a circuit or estimate.
type LimitingFactor string

// Limiting factors.
const (
	LimitNone        LimitingFactor = "none"
	LimitCurrent     LimitingFactor = "current"
	LimitUnitLoad    LimitingFactor = "unit_load"
	LimitDeviceCount LimitingFactor = "device_count"
	LimitMixRule     LimitingFactor = "mix_rule"
)

// Summary is the per-circuit report row.
type Summary struct {
	CircuitID   string  `json:"circuit_id"`
	PanelID     string  `json:"panel_id"`
	CurrentA    float64 `json:"current_a"`
	UnitLoads   int     `json:"unit_loads"`
	DeviceCount int     `json:"device_count"`
	WattageW    float64 `json:"wattage_w"`

	// Utilisation of the derated limits, 0..1 when within limits.
	CurrentUtilisation  float64 `json:"current_utilisation"`
	UnitLoadUtilisation float64 `json:"unit_load_utilisation"`

	LimitingFactor LimitingFactor `json:"limiting_factor"`
}

// Circuit ID formatting.
const (
	panelPrefix   = "PNL"
	circuitPrefix = "IDNAC"
)

// PanelID returns the panel identifier for a 1-based panel number.
func PanelID(n int) string {
	return fmt.Sprintf("%s-%02d", panelPrefix, n)
}

// CircuitSuffix returns the run-wide circuit suffix for a 1-based circuit number.
func CircuitSuffix(n int) string {
	return fmt.Sprintf("%s-%02d", circuitPrefix, n)
}

// CircuitID joins a panel ID and circuit suffix as "{panelId}-{suffix}".
func CircuitID(panelID, suffix string) string {
	return panelID + "-" + suffix
}

// PanelOf extracts the panel ID from a circuit ID produced by CircuitID.
func PanelOf(circuitID string) (string, error) {
	idx := strings.Index(circuitID, "-"+circuitPrefix+"-")
	if idx <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCircuitID, circuitID)
	}
	return circuitID[:idx], nil
}
