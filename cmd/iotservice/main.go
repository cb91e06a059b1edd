// Gray Logic IoT coordinator
//
// This is the main entry point for the IoT coordinator. It registers the
// simulated household devices, optionally runs the demonstration programs,
// and serves the REST API and MQTT command topics until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/api"
	"github.com/nerrad567/gray-logic-iot/internal/devices"
	"github.com/nerrad567/gray-logic-iot/internal/history"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/migrations"
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

// demoSong is played by the second demonstration program.
const demoSong = "Rick Astley - Never Gonna Give You Up"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()

	configPath := getConfigPath()
	cfg, found, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("site_id", cfg.Site.ID)
	log.Info("starting Gray Logic IoT coordinator",
		"site", cfg.Site.Name,
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"config_found", found,
	)

	var observers iot.Observers

	// Execution journal (optional)
	var journalRepo history.Repository
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", db.Path())

		journalRepo = history.NewSQLiteRepository(db.DB)
		journal := history.NewJournal(journalRepo)
		journal.SetLogger(log.Component("journal"))
		observers = append(observers, journal)
	}

	// MQTT event publishing (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
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

		publisher := mqtt.NewEventPublisher(mqttClient)
		publisher.SetLogger(log.Component("mqtt"))
		observers = append(observers, publisher)
	}

	// InfluxDB metrics (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		observers = append(observers, influxdb.NewMetrics(influxClient))
	}

	// WebSocket hub observes events before the service exists so no event is missed.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		observers = append(observers, hub)
	}

	svc := iot.NewService(iot.Options{
		MaxDevices: cfg.Runtime.MaxDevices,
		StepDelay:  cfg.Runtime.StepDelay,
		Observer:   observers,
		Logger:     log,
	})

	ids, err := registerHousehold(ctx, svc, cfg.Runtime.DeviceLatency)
	if err != nil {
		return fmt.Errorf("registering devices: %w", err)
	}
	log.Info("household registered",
		"light", ids.light,
		"speaker", ids.speaker,
		"toilet", ids.toilet,
	)

	if mqttClient != nil {
		listener := mqtt.NewCommandListener(mqttClient, svc.Dispatcher(), byte(cfg.MQTT.QoS)) // #nosec G115 -- validated 0..2
		listener.SetLogger(log.Component("mqtt"))
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("subscribing to MQTT commands: %w", err)
		}
		defer func() {
			if stopErr := listener.Stop(); stopErr != nil {
				log.Warn("error unsubscribing MQTT commands", "error", stopErr)
			}
		}()
	}

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Site:    cfg.Site,
			Logger:  log.Component("api"),
			Service: svc,
			History: journalRepo,
			Hub:     hub,
			Version: version,
		})
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
	}

	if cfg.Runtime.Demo {
		runDemo(ctx, svc, ids, log)
	}

	if !cfg.API.Enabled && !cfg.MQTT.Enabled {
		log.Info("Gray Logic IoT coordinator finished")
		return nil
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("Gray Logic IoT coordinator stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// household holds the identities of the three simulated devices.
type household struct {
	light   iot.DeviceID
	speaker iot.DeviceID
	toilet  iot.DeviceID
}

// registerHousehold registers a light, a speaker and a toilet concurrently.
func registerHousehold(ctx context.Context, svc *iot.Service, latency time.Duration) (household, error) {
	ids, err := svc.RegisterDevices(ctx,
		devices.NewHueLight(devices.WithLatency(latency)),
		devices.NewSmartSpeaker(devices.WithLatency(latency)),
		devices.NewSmartToilet(devices.WithLatency(latency)),
	)
	if err != nil {
		return household{}, err
	}
	return household{light: ids[0], speaker: ids[1], toilet: ids[2]}, nil
}

// demoPrograms returns the four demonstration programs.
func demoPrograms(h household) []iot.Program {
	return []iot.Program{
		{
			iot.NewMessage(h.light, iot.CommandSwitchOn),
			iot.NewMessage(h.speaker, iot.CommandSwitchOn),
		},
		{
			iot.NewMessageWithPayload(h.speaker, iot.CommandPlaySong, demoSong),
		},
		{
			iot.NewMessage(h.light, iot.CommandSwitchOff),
			iot.NewMessage(h.speaker, iot.CommandSwitchOff),
			iot.NewMessage(h.toilet, iot.CommandFlush),
		},
		{
			iot.NewMessage(h.toilet, iot.CommandClean),
		},
	}
}

// runDemo runs the demonstration programs concurrently and logs the elapsed time.
func runDemo(ctx context.Context, svc *iot.Service, h household, log *logging.Logger) []iot.ProgramResult {
	started := time.Now()
	results := svc.RunPrograms(ctx, demoPrograms(h)...)

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		log.Info("demo program completed",
			"program", r.Index,
			"execution_id", r.ExecutionID,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	log.Info("demo finished", "elapsed", time.Since(started).String())
	return results
}
