package design

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/mqtt"
)

// JSONPublisher is the subset of the MQTT client used to announce changes.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTPublisher publishes each committed change over MQTT.
//
// Circuit summaries and issues are retained per circuit so a late subscriber
// sees the current design. The change itself is published once as an event.
type MQTTPublisher struct {
	client JSONPublisher
	topics mqtt.Topics
}

// NewMQTTPublisher creates a publisher over a connected client.
func NewMQTTPublisher(client JSONPublisher, topics mqtt.Topics) *MQTTPublisher {
	return &MQTTPublisher{client: client, topics: topics}
}

// PublishChange publishes summaries, per-circuit issues and the change event.
// Every publish is attempted; the errors are joined.
func (p *MQTTPublisher) PublishChange(change Change) error {
	var errs []error

	for _, sum := range change.Summaries {
		if err := p.client.PublishJSON(p.topics.CircuitSummary(sum.CircuitID), sum, true); err != nil {
			errs = append(errs, fmt.Errorf("summary %s: %w", sum.CircuitID, err))
		}
		issues := change.CircuitIssues[sum.CircuitID]
		if issues == nil {
			// an empty list clears the retained payload
			issues = []circuit.Issue{}
		}
		if err := p.client.PublishJSON(p.topics.CircuitIssues(sum.CircuitID), issues, true); err != nil {
			errs = append(errs, fmt.Errorf("issues %s: %w", sum.CircuitID, err))
		}
	}

	if err := p.client.PublishJSON(p.topics.DesignEvent(change.Operation), change, false); err != nil {
		errs = append(errs, fmt.Errorf("event %s: %w", change.Operation, err))
	}

	return errors.Join(errs...)
}

// LoadWriter is the subset of the InfluxDB client used to record loads.
type LoadWriter interface {
	WriteCircuitLoads(loads []influxdb.CircuitLoad, ts time.Time)
	WriteDesignRun(run influxdb.DesignRun, ts time.Time)
	Flush()
}

// InfluxRecorder writes circuit loads and a change summary per commit.
type InfluxRecorder struct {
	writer LoadWriter
}

// NewInfluxRecorder creates a recorder over a connected client.
func NewInfluxRecorder(writer LoadWriter) *InfluxRecorder {
	return &InfluxRecorder{writer: writer}
}

// RecordChange writes one load point per summarised circuit and one run point.
// A full design run is flushed at once so the new baseline lands as a whole;
// edits are left to the batch interval.
func (r *InfluxRecorder) RecordChange(change Change) {
	loads := make([]influxdb.CircuitLoad, 0, len(change.Summaries))
	for _, sum := range change.Summaries {
		loads = append(loads, influxdb.CircuitLoad{
			RunID:          change.ID,
			PanelID:        sum.PanelID,
			CircuitID:      sum.CircuitID,
			Devices:        sum.DeviceCount,
			CurrentA:       sum.CurrentA,
			UnitLoads:      float64(sum.UnitLoads),
			Utilisation:    utilisation(sum),
			LimitingFactor: string(sum.LimitingFactor),
		})
	}
	r.writer.WriteCircuitLoads(loads, change.At)

	run := influxdb.DesignRun{
		RunID:     change.ID,
		Operation: change.Operation,
		Circuits:  change.Size.Circuits,
		Panels:    change.Size.Panels,
		Devices:   change.Size.Devices,
		Duration:  change.Duration,
	}
	for _, iss := range change.Issues {
		switch iss.Severity {
		case circuit.SeverityError:
			run.Errors++
		case circuit.SeverityWarning:
			run.Warnings++
		}
	}
	r.writer.WriteDesignRun(run, change.At)

	if change.Operation == OpRun {
		r.writer.Flush()
	}
}
