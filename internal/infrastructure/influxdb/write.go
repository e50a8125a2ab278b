package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementCircuitLoad = "circuit_load"
	measurementDesignRun   = "design_run"
)

// CircuitLoad is one circuit's load at the time a design change committed.
type CircuitLoad struct {
	RunID          string
	PanelID        string
	CircuitID      string
	Devices        int
	CurrentA       float64
	UnitLoads      float64
	Utilisation    float64
	LimitingFactor string
}

// DesignRun summarises one committed design change.
type DesignRun struct {
	RunID     string
	Operation string
	Circuits  int
	Panels    int
	Devices   int
	Errors    int
	Warnings  int
	Duration  time.Duration
}

// WriteCircuitLoads records the load of every circuit. Writes are batched.
//
// Example:
//
//	client.WriteCircuitLoads([]influxdb.CircuitLoad{{
//	    CircuitID: "PNL-01-IDNAC-01", PanelID: "PNL-01", CurrentA: 1.2, Devices: 14,
//	}}, time.Now())
func (c *Client) WriteCircuitLoads(loads []CircuitLoad, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	for _, l := range loads {
		c.writeAPI.WritePoint(circuitLoadPoint(c.site, l, ts))
	}
}

// WriteDesignRun records a committed design change.
func (c *Client) WriteDesignRun(run DesignRun, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(designRunPoint(c.site, run, ts))
}

func circuitLoadPoint(site string, l CircuitLoad, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementCircuitLoad,
		map[string]string{
			"site":            site,
			"panel_id":        l.PanelID,
			"circuit_id":      l.CircuitID,
			"limiting_factor": l.LimitingFactor,
		},
		map[string]interface{}{
			"run_id":      l.RunID,
			"devices":     l.Devices,
			"current_a":   l.CurrentA,
			"unit_loads":  l.UnitLoads,
			"utilisation": l.Utilisation,
		},
		ts,
	)
}

func designRunPoint(site string, run DesignRun, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementDesignRun,
		map[string]string{
			"site":      site,
			"operation": run.Operation,
		},
		map[string]interface{}{
			"run_id":      run.RunID,
			"circuits":    run.Circuits,
			"panels":      run.Panels,
			"devices":     run.Devices,
			"errors":      run.Errors,
			"warnings":    run.Warnings,
			"duration_ms": run.Duration.Milliseconds(),
		},
		ts,
	)
}
