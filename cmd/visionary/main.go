// Visionary UI Core - smart home visualization backend
//
// This is the main entry point for the Visionary UI backend. It keeps a
// live mirror of the home automation platform's rooms, functions, state
// objects, and values, serves the visualization client, and fans every
// state change out to all connected WebSocket clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ljouon/visionary-ui-core/internal/coordinator"
	"github.com/ljouon/visionary-ui-core/internal/domain"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/config"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/influxdb"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/mqtt"
	"github.com/ljouon/visionary-ui-core/internal/platform"
	"github.com/ljouon/visionary-ui-core/internal/socket"
	"github.com/ljouon/visionary-ui-core/internal/web"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Visionary UI Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// The repository mirrors the platform's collections; the coordinator
	// owns it and drives all fan-out.
	repo := domain.NewRepository()
	repo.SetLanguage(cfg.Language)

	socketServer := socket.New(cfg.Socket, log)
	coord := coordinator.New(repo, socketServer, log)
	socketServer.RegisterInboundHandler(coord)

	if err := socketServer.Start(); err != nil {
		return fmt.Errorf("starting socket server: %w", err)
	}
	defer func() {
		log.Info("stopping socket server")
		if stopErr := socketServer.Stop(); stopErr != nil {
			log.Error("error stopping socket server", "error", stopErr)
		}
	}()
	log.Info("socket server started", "address", socketServer.Addr())

	// Static client UI
	webServer := web.New(cfg.Web, log)
	if err := webServer.Start(); err != nil {
		return fmt.Errorf("starting web server: %w", err)
	}
	defer func() {
		log.Info("stopping web server")
		if closeErr := webServer.Close(); closeErr != nil {
			log.Error("error stopping web server", "error", closeErr)
		}
	}()

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
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

	// Connect to InfluxDB (optional value telemetry)
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
		coord.SetMetricWriter(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bridge the platform bus onto the coordinator. The bridge also carries
	// client value writes back to the platform.
	bridge := platform.New(mqttClient, coord, qos(cfg.MQTT.QoS), log)
	coord.SetStateWriter(bridge)
	if err := bridge.Start(); err != nil {
		return fmt.Errorf("starting platform bridge: %w", err)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VISIONARY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VISIONARY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// qos clamps the configured QoS into the valid MQTT range.
func qos(level int) byte {
	if level < 0 || level > 2 {
		return 1
	}
	return byte(level)
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
