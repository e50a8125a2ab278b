// Gray Logic Fire Alarm - circuit and address designer
//
// This is the main entry point for the fire alarm design service. It groups
// addressable devices into loop circuits within their current, unit load and
// device-count limits, assigns device addresses, and keeps the design
// consistent through every later edit.
//
// The design is held in memory, persisted to SQLite after every commit, and
// served over the HTTP API. Committed changes are optionally published over
// MQTT and recorded in InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/nerrad567/gray-logic-firealarm/migrations"

	"github.com/nerrad567/gray-logic-firealarm/internal/api"
	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/audit"
	"github.com/nerrad567/gray-logic-firealarm/internal/capacity"
	"github.com/nerrad567/gray-logic-firealarm/internal/design"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-firealarm/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-firealarm/internal/snapshot"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// commandRun is the MQTT command that triggers a design run.
const commandRun = "run"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Fire Alarm",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, cfg.Site.ID, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	svc, err := design.NewService(capacityConfig(cfg.Capacity))
	if err != nil {
		return fmt.Errorf("creating design service: %w", err)
	}
	svc.SetLogger(log.Component("design"))
	svc.SetRepository(assignment.NewSQLiteRepository(db.DB))
	history := audit.NewSQLiteRepository(db.DB)
	svc.SetChangeLog(history)
	svc.SetMetrics(metrics.New(prometheus.DefaultRegisterer))

	size, err := svc.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restoring design: %w", err)
	}
	log.Info("design restored",
		"circuits", size.Circuits,
		"panels", size.Panels,
		"devices", size.Devices,
	)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, mqtt.Topics{Site: cfg.Site.ID})
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		svc.SetPublisher(design.NewMQTTPublisher(mqttClient, mqttClient.Topics()))

		if subErr := mqttClient.Subscribe(mqttClient.Topics().Command(commandRun), byte(cfg.MQTT.QoS), runCommandHandler(ctx, svc, log)); subErr != nil {
			return fmt.Errorf("subscribing to run command: %w", subErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		svc.SetLoadRecorder(design.NewInfluxRecorder(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Snapshot.RunOnStartup {
		if runErr := runSnapshot(ctx, svc, cfg.Snapshot.Path, log); runErr != nil {
			return fmt.Errorf("running startup snapshot: %w", runErr)
		}
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	deps := api.Deps{
		Config:   cfg.API,
		Logger:   log.Component("api"),
		Design:   svc,
		Changes:  history,
		Gatherer: prometheus.DefaultGatherer,
		DB:       db.DB,
		Version:  version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Gray Logic Fire Alarm stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Checks GRAYLOGIC_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// capacityConfig maps the YAML capacity section onto the engine configuration.
func capacityConfig(c config.CapacityConfig) capacity.Configuration {
	cfg := capacity.Configuration{
		CurrentLimitA:        c.CurrentLimitA,
		UnitLoadLimit:        c.UnitLoadLimit,
		MaxDevicesPerCircuit: c.MaxDevicesPerCircuit,
		SpareFraction:        c.SpareFraction,
		CircuitsPerPanel:     c.CircuitsPerPanel,
		PanelCurrentLimitA:   c.PanelCurrentLimitA,
		AddressSpaceMax:      c.AddressSpaceMax,
		StartAddress:         c.StartAddress,
		SegmentBy:            c.SegmentBy,
	}
	for _, r := range c.MixExclusionRules {
		cfg.MixExclusionRules = append(cfg.MixExclusionRules, capacity.MixRule{
			Field:        r.Field,
			ExcludedKeys: r.ExcludedKeys,
		})
	}
	return cfg
}

// runSnapshot loads a snapshot file and replaces the design with it.
func runSnapshot(ctx context.Context, svc *design.Service, path string, log *logging.Logger) error {
	snap, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx, snap.Devices, snap.Metadata)
	if err != nil {
		return err
	}
	log.Info("snapshot design complete",
		"path", path,
		"devices", len(snap.Devices),
		"circuits", len(res.Summaries),
		"issues", len(res.Issues),
	)
	return nil
}

// runCommandHandler runs a design from a snapshot published on the run
// command topic.
func runCommandHandler(ctx context.Context, svc *design.Service, log *logging.Logger) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		snap, err := snapshot.Parse(payload)
		if err != nil {
			return fmt.Errorf("parsing snapshot from %s: %w", topic, err)
		}
		res, err := svc.Run(ctx, snap.Devices, snap.Metadata)
		if err != nil {
			return fmt.Errorf("running design from %s: %w", topic, err)
		}
		log.Info("design run from MQTT command",
			"topic", topic,
			"run_id", res.ID,
			"circuits", len(res.Summaries),
			"issues", len(res.Issues),
		)
		return nil
	}
}

// healthCheck verifies all connected services are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
