package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/config"
)

// testConfig matches the local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "firealarm",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips integration tests unless RUN_INTEGRATION is set.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION to run against a local InfluxDB")
	}
}

func lineProtocol(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Second)
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg, "site-001"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := Connect(cfg, "site-001"); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name         string
		batch, flush int
		wantBatch    uint
		wantFlushMS  uint
	}{
		{"configured", 50, 2, 50, 2000},
		{"defaults", 0, 0, defaultBatchSize, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize, cfg.FlushInterval = tt.batch, tt.flush

			opts := writeOptions(cfg)
			if opts.BatchSize() != tt.wantBatch || opts.FlushInterval() != tt.wantFlushMS {
				t.Errorf("batch/flush = %d/%d, want %d/%d", opts.BatchSize(), opts.FlushInterval(), tt.wantBatch, tt.wantFlushMS)
			}
		})
	}
}

func TestCircuitLoadPoint(t *testing.T) {
	ts := time.Unix(1_760_000_000, 0)
	p := circuitLoadPoint("site-001", CircuitLoad{
		RunID:          "run-1",
		PanelID:        "PNL-01",
		CircuitID:      "PNL-01-IDNAC-02",
		Devices:        14,
		CurrentA:       1.25,
		UnitLoads:      6,
		Utilisation:    0.65,
		LimitingFactor: "current",
	}, ts)

	line := lineProtocol(p)
	for _, want := range []string{
		"circuit_load,",
		"circuit_id=PNL-01-IDNAC-02",
		"limiting_factor=current",
		"panel_id=PNL-01",
		"site=site-001",
		"current_a=1.25",
		"devices=14i",
		`run_id="run-1"`,
		" 1760000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestDesignRunPoint(t *testing.T) {
	p := designRunPoint("site-001", DesignRun{
		RunID:     "run-2",
		Operation: "resequence",
		Circuits:  3,
		Panels:    1,
		Devices:   40,
		Warnings:  2,
		Duration:  1500 * time.Millisecond,
	}, time.Unix(1_760_000_000, 0))

	line := lineProtocol(p)
	for _, want := range []string{"design_run,", "operation=resequence", "circuits=3i", "warnings=2i", "duration_ms=1500i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestOfflineClient(t *testing.T) {
	c := &Client{}

	// writes on a disconnected client are dropped
	c.WriteCircuitLoads([]CircuitLoad{{CircuitID: "PNL-01-IDNAC-01"}}, time.Now())
	c.WriteDesignRun(DesignRun{RunID: "run"}, time.Now())
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestIntegration_WriteAndFlush(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := Connect(testConfig(), "int-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteCircuitLoads([]CircuitLoad{{PanelID: "PNL-01", CircuitID: "PNL-01-IDNAC-01", Devices: 2, CurrentA: 0.2}}, time.Now())
	client.WriteDesignRun(DesignRun{RunID: "int", Operation: "run", Circuits: 1}, time.Now())
	client.Flush()

	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
