// Package metrics exposes Prometheus metrics for design operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "graylogic_firealarm_"

// Operation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics bundles the designer's collectors.
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	IssuesTotal        *prometheus.CounterVec
	Circuits           prometheus.Gauge
	Panels             prometheus.Gauge
	Devices            prometheus.Gauge
	CircuitUtilisation *prometheus.GaugeVec
}

// New constructs the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "operations_total",
				Help: "Total design operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "operation_duration_seconds",
				Help:    "Design operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		IssuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "issues_total",
				Help: "Total issues reported by code",
			},
			[]string{"code"},
		),
		Circuits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "circuits",
			Help: "Circuits in the committed design",
		}),
		Panels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "panels",
			Help: "Panels in the committed design",
		}),
		Devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "devices",
			Help: "Assigned devices in the committed design",
		}),
		CircuitUtilisation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "circuit_utilisation_ratio",
				Help: "Highest load-to-derated-limit ratio per circuit",
			},
			[]string{"circuit_id"},
		),
	}
	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.IssuesTotal,
		m.Circuits,
		m.Panels,
		m.Devices,
		m.CircuitUtilisation,
	)
	return m
}

// ObserveOperation counts one operation and records its latency.
func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordIssueCodes counts each reported issue code.
func (m *Metrics) RecordIssueCodes(codes []string) {
	for _, code := range codes {
		m.IssuesTotal.WithLabelValues(code).Inc()
	}
}

// SetDesignSize updates the size gauges.
func (m *Metrics) SetDesignSize(circuits, panels, devices int) {
	m.Circuits.Set(float64(circuits))
	m.Panels.Set(float64(panels))
	m.Devices.Set(float64(devices))
}

// SetCircuitUtilisation replaces the per-circuit utilisation series so
// circuits that no longer exist stop reporting.
func (m *Metrics) SetCircuitUtilisation(byCircuit map[string]float64) {
	m.CircuitUtilisation.Reset()
	for id, u := range byCircuit {
		m.CircuitUtilisation.WithLabelValues(id).Set(u)
	}
}
