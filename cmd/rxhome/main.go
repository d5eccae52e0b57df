// RX Home - Home Automation Hub
//
// This is the main entry point for the RX Home hub. The hub hosts the
// event bus, state store, service registry and timer, and exposes them
// over MQTT, HTTP and WebSocket for dashboards, bridges and integrations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Hatles/rx-home/migrations"

	"github.com/Hatles/rx-home/internal/api"
	"github.com/Hatles/rx-home/internal/auth"
	"github.com/Hatles/rx-home/internal/bridge"
	"github.com/Hatles/rx-home/internal/core"
	"github.com/Hatles/rx-home/internal/history"
	"github.com/Hatles/rx-home/internal/infrastructure/config"
	"github.com/Hatles/rx-home/internal/infrastructure/database"
	"github.com/Hatles/rx-home/internal/infrastructure/influxdb"
	"github.com/Hatles/rx-home/internal/infrastructure/logging"
	"github.com/Hatles/rx-home/internal/infrastructure/mqtt"
	"github.com/Hatles/rx-home/internal/metrics"
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
	// "rxhome token [subject]" mints an API access token and exits.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := mintToken(os.Stdout, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// mintToken writes a signed bearer token for the API to w. The subject
// defaults to "admin"; the secret and TTL come from the configuration.
func mintToken(w io.Writer, args []string) error {
	subject := "admin"
	if len(args) > 0 && args[0] != "" {
		subject = args[0]
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateToken(subject, cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Fprintln(w, token)
	return nil
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting RX Home",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and apply migrations
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

	// Start the hub runtime
	hub := core.New(core.Config{
		Name:           cfg.Site.Name,
		UnitSystem:     cfg.Site.UnitSystem,
		TimeZone:       cfg.Site.Timezone,
		Latitude:       cfg.Site.Location.Latitude,
		Longitude:      cfg.Site.Location.Longitude,
		Elevation:      cfg.Site.Location.Elevation,
		ShutdownBudget: time.Duration(cfg.Core.ShutdownBudget) * time.Second,
		DrainBudget:    time.Duration(cfg.Core.DrainBudget) * time.Second,
	}, log)
	if err := hub.Start(); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}
	defer func() {
		log.Info("stopping hub")
		if stopErr := hub.Stop(); stopErr != nil {
			log.Error("error stopping hub", "error", stopErr)
		}
	}()
	log.Info("hub started", "name", hub.Config().Name)

	// Record state changes into SQLite
	historyRepo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(hub, historyRepo, log)
	recorder.Start()
	defer recorder.Stop()
	log.Info("state history recorder started")

	// Connect to MQTT broker and mirror the hub onto it (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mqttBridge := bridge.New(hub, mqttClient, byte(cfg.MQTT.QoS), log)
		if err := mqttBridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			if stopErr := mqttBridge.Stop(); stopErr != nil {
				log.Error("error stopping MQTT bridge", "error", stopErr)
			}
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Stream numeric telemetry to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		streamer := metrics.NewStreamer(hub, influxClient, log)
		streamer.Start()
		defer streamer.Stop()
		log.Info("metrics streamer started")
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Hub:      hub,
		History:  historyRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Metrics streamer and InfluxDB (if enabled)
	// 3. MQTT bridge and client (if enabled)
	// 4. History recorder
	// 5. Hub
	// 6. Database

	log.Info("RX Home stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RXHOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RXHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
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

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
