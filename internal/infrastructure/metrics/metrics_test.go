package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("move_device", ResultOK, 20*time.Millisecond)
	m.ObserveOperation("move_device", ResultRejected, time.Millisecond)
	m.ObserveOperation("move_device", ResultOK, time.Millisecond)

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("move_device", ResultOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("move_device", ResultRejected)); got != 1 {
		t.Errorf("rejected count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.OperationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestRecordIssueCodes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordIssueCodes([]string{"ADDR_CONFLICT", "ADDR_CONFLICT", "CAP_CURRENT_EXCEEDED"})

	if got := testutil.ToFloat64(m.IssuesTotal.WithLabelValues("ADDR_CONFLICT")); got != 2 {
		t.Errorf("ADDR_CONFLICT = %v, want 2", got)
	}
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetDesignSize(5, 2, 61)
	if testutil.ToFloat64(m.Circuits) != 5 || testutil.ToFloat64(m.Panels) != 2 || testutil.ToFloat64(m.Devices) != 61 {
		t.Error("design size gauges not set")
	}

	m.SetCircuitUtilisation(map[string]float64{"PNL-01-IDNAC-01": 0.5, "PNL-01-IDNAC-02": 0.9})
	m.SetCircuitUtilisation(map[string]float64{"PNL-01-IDNAC-01": 0.7})

	if got := testutil.CollectAndCount(m.CircuitUtilisation); got != 1 {
		t.Errorf("utilisation series = %d, want 1 after reset", got)
	}
	if got := testutil.ToFloat64(m.CircuitUtilisation.WithLabelValues("PNL-01-IDNAC-01")); got != 0.7 {
		t.Errorf("utilisation = %v, want 0.7", got)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry should panic")
		}
	}()
	New(reg)
}
