package design

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/mqtt"
)

type published struct {
	topic    string
	payload  any
	retained bool
}

type recordingClient struct {
	msgs    []published
	failOn  string
	failErr error
}

func (c *recordingClient) PublishJSON(topic string, v any, retained bool) error {
	c.msgs = append(c.msgs, published{topic: topic, payload: v, retained: retained})
	if topic == c.failOn {
		return c.failErr
	}
	return nil
}

func testChange() Change {
	overload := circuit.NewIssue(circuit.CodeCapCurrentExceeded, "Move would exceed current limit", 7)
	return Change{
		ID:        "change-1",
		Operation: OpMoveDevice,
		Circuits:  []string{circuit01, circuit02},
		Summaries: []circuit.Summary{
			{CircuitID: circuit01, PanelID: "PNL-01", CurrentA: 0.3, DeviceCount: 1, CurrentUtilisation: 0.375, UnitLoadUtilisation: 0.05, LimitingFactor: circuit.LimitCurrent},
			{CircuitID: circuit02, PanelID: "PNL-01", CurrentA: 0.6, DeviceCount: 2, CurrentUtilisation: 0.75, UnitLoadUtilisation: 0.1, LimitingFactor: circuit.LimitCurrent},
		},
		Issues: []circuit.Issue{
			overload,
			circuit.NewWarning(circuit.CodeAddrConflict, "overlap", 7, 8),
		},
		CircuitIssues: map[string][]circuit.Issue{circuit02: {overload}},
		Size:          DesignSize{Circuits: 2, Panels: 1, Devices: 3},
		Duration:      15 * time.Millisecond,
		At:            time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMQTTPublisher_PublishChange(t *testing.T) {
	client := &recordingClient{}
	topics := mqtt.Topics{Site: "site-001"}
	pub := NewMQTTPublisher(client, topics)

	if err := pub.PublishChange(testChange()); err != nil {
		t.Fatalf("PublishChange() error = %v", err)
	}

	want := []struct {
		topic    string
		retained bool
	}{
		{topics.CircuitSummary(circuit01), true},
		{topics.CircuitIssues(circuit01), true},
		{topics.CircuitSummary(circuit02), true},
		{topics.CircuitIssues(circuit02), true},
		{topics.DesignEvent(OpMoveDevice), false},
	}
	if len(client.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(client.msgs), len(want))
	}
	for i, w := range want {
		if client.msgs[i].topic != w.topic || client.msgs[i].retained != w.retained {
			t.Errorf("message %d = %s (retained %v), want %s (retained %v)",
				i, client.msgs[i].topic, client.msgs[i].retained, w.topic, w.retained)
		}
	}

	if issues, ok := client.msgs[1].payload.([]circuit.Issue); !ok || issues == nil || len(issues) != 0 {
		t.Errorf("issues for %s = %#v, want empty non-nil list", circuit01, client.msgs[1].payload)
	}
	if issues := client.msgs[3].payload.([]circuit.Issue); len(issues) != 1 {
		t.Errorf("issues for %s = %+v, want 1", circuit02, issues)
	}
}

func TestMQTTPublisher_JoinsErrors(t *testing.T) {
	topics := mqtt.Topics{Site: "site-001"}
	brokerErr := errors.New("not connected")
	client := &recordingClient{failOn: topics.CircuitSummary(circuit01), failErr: brokerErr}

	err := NewMQTTPublisher(client, topics).PublishChange(testChange())
	if !errors.Is(err, brokerErr) {
		t.Fatalf("PublishChange() error = %v, want %v", err, brokerErr)
	}
	if len(client.msgs) != 5 {
		t.Errorf("published %d messages, want every publish attempted", len(client.msgs))
	}
}

type recordingWriter struct {
	loads   []influxdb.CircuitLoad
	runs    []influxdb.DesignRun
	ts      time.Time
	flushes int
}

func (w *recordingWriter) Flush() {
	w.flushes++
}

func (w *recordingWriter) WriteCircuitLoads(loads []influxdb.CircuitLoad, ts time.Time) {
	w.loads = append(w.loads, loads...)
	w.ts = ts
}

func (w *recordingWriter) WriteDesignRun(run influxdb.DesignRun, _ time.Time) {
	w.runs = append(w.runs, run)
}

func TestInfluxRecorder_RecordChange(t *testing.T) {
	w := &recordingWriter{}
	change := testChange()

	NewInfluxRecorder(w).RecordChange(change)

	if len(w.loads) != 2 {
		t.Fatalf("wrote %d loads, want 2", len(w.loads))
	}
	l := w.loads[1]
	if l.CircuitID != circuit02 || l.RunID != "change-1" || l.Devices != 2 || l.Utilisation != 0.75 || l.LimitingFactor != "current" {
		t.Errorf("load = %+v", l)
	}
	if !w.ts.Equal(change.At) {
		t.Errorf("timestamp = %v, want %v", w.ts, change.At)
	}

	if len(w.runs) != 1 {
		t.Fatalf("wrote %d runs, want 1", len(w.runs))
	}
	run := w.runs[0]
	if run.Operation != OpMoveDevice || run.Circuits != 2 || run.Devices != 3 || run.Errors != 1 || run.Warnings != 1 {
		t.Errorf("run = %+v", run)
	}
	if w.flushes != 0 {
		t.Errorf("edit flushed %d times, want batched", w.flushes)
	}

	change.Operation = OpRun
	NewInfluxRecorder(w).RecordChange(change)
	if w.flushes != 1 {
		t.Errorf("design run flushed %d times, want 1", w.flushes)
	}
}
