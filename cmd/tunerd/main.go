// tunerd - HDHomeRun tuner discovery and management service
//
// This is the main entry point for tunerd. It discovers HDHomeRun network
// tuners, builds one frontend per tuner unit, persists per-device settings
// and exposes the device graph over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/tunerd/migrations"

	"github.com/nerrad567/tunerd/internal/api"
	"github.com/nerrad567/tunerd/internal/bridge"
	"github.com/nerrad567/tunerd/internal/hdhomerun"
	"github.com/nerrad567/tunerd/internal/infrastructure/config"
	"github.com/nerrad567/tunerd/internal/infrastructure/database"
	"github.com/nerrad567/tunerd/internal/infrastructure/influxdb"
	"github.com/nerrad567/tunerd/internal/infrastructure/logging"
	"github.com/nerrad567/tunerd/internal/infrastructure/mqtt"
	"github.com/nerrad567/tunerd/internal/settings"
	"github.com/nerrad567/tunerd/internal/tuner"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting tunerd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

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
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	manager := newManager(cfg.Discovery, settings.NewSQLiteStore(db.DB))
	manager.SetLogger(log.Component("tuner"))

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Tuners:  manager,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	manager.AddListener(server.Hub())

	var mqttClient *mqtt.Client
	var tunerBridge *bridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, tunerBridge, err = startMQTT(ctx, cfg, manager, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		// Runs before the client closes so the stopping health is published.
		defer tunerBridge.Stop()
	} else {
		log.Info("MQTT bridge disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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
		manager.AddListener(newMetricsRecorder(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "address", server.Addr())

	// Devices are released before the bridge stops and the API closes so
	// their removal reaches subscribers.
	defer func() {
		if shutdownErr := manager.Shutdown(); shutdownErr != nil {
			log.Error("error shutting down tuner manager", "error", shutdownErr)
		}
	}()
	if startErr := manager.Start(ctx); startErr != nil {
		return fmt.Errorf("starting tuner manager: %w", startErr)
	}
	log.Info("tuner manager started",
		"devices", len(manager.Devices()),
		"interval", cfg.Discovery.Interval,
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// newManager builds the tuner manager on top of the HDHomeRun transport.
func newManager(cfg config.DiscoveryConfig, store settings.Store) *tuner.Manager {
	client := hdhomerun.NewClient(hdhomerun.ClientOptions{
		BroadcastAddress: cfg.BroadcastAddress,
		Timeout:          cfg.Timeout,
	})
	sessionOpts := hdhomerun.SessionOptions{Timeout: cfg.SessionTimeout}

	return tuner.NewManager(tuner.Options{
		Discoverer: discoverer{client: client},
		Sessions:   sessionOpener{opts: sessionOpts},
		Tuners:     tunerOpener{opts: sessionOpts},
		Store:      store,
		Interval:   cfg.Interval,
		MaxDevices: cfg.MaxDevices,
	})
}

// startMQTT connects to the broker with the bridge health topic as the
// will and starts the tuner bridge.
func startMQTT(ctx context.Context, cfg *config.Config, manager *tuner.Manager, log *logging.Logger) (*mqtt.Client, *bridge.Bridge, error) {
	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(bridge.LWTTopic(), bridge.LWTPayload()))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	b, err := bridge.New(bridge.Options{
		Tuners:         manager,
		MQTT:           client,
		QoS:            client.QoS(),
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log.Component("bridge"),
	})
	if err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	manager.AddListener(b)
	log.Info("MQTT bridge started")

	return client, b, nil
}

// getConfigPath returns the configuration file path.
// Uses TUNERD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TUNERD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy. The
// MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
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
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
