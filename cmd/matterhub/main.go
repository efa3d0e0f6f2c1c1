// Gray Logic Matter Hub - Home Assistant to Matter bridge
//
// This is the main entry point for the Matter hub. It mirrors Home
// Assistant entity state into bridged Matter endpoints and reports every
// attribute change to:
//   - MQTT (retained attribute topics, endpoint availability)
//   - InfluxDB (numeric and boolean telemetry, optional)
//   - SQLite (attribute history served by the HTTP API)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-matterhub/internal/api"
	"github.com/nerrad567/gray-logic-matterhub/internal/bridge"
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/clusters"
	"github.com/nerrad567/gray-logic-matterhub/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// startupCheckTimeout bounds the infrastructure health checks run
	// before the bridge starts.
	startupCheckTimeout = 10 * time.Second

	hoursPerDay = 24
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command-line settings.
type options struct {
	configPath string
	overrides  []config.Override

	// migrateDown rolls back the latest migration and exits.
	migrateDown bool
}

// parseFlags parses the command line. Only flags the user actually set
// become overrides, so file and environment values survive otherwise.
//
// Parameters:
//   - args: Arguments without the program name
//   - output: Where usage and parse errors are written
//
// Returns:
//   - options: Config path and overrides
//   - error: pflag.ErrHelp for --help, or a parse error
func parseFlags(args []string, output io.Writer) (options, error) {
	fs := pflag.NewFlagSet("matterhub", pflag.ContinueOnError)
	fs.SetOutput(output)

	configPath := fs.StringP("config", "c", os.Getenv("MATTERHUB_CONFIG"),
		"path to a YAML or JSON(C) config file (env MATTERHUB_CONFIG)")
	logLevel := fs.String("log-level", "", "log level: silly, debug, info, warn or error")
	logFormat := fs.String("log-format", "", "log format: json or text")
	storage := fs.String("storage-location", "", "data directory for the bridge database")
	webPort := fs.Int("web-port", 0, "HTTP API port")
	haURL := fs.String("home-assistant-url", "", "Home Assistant base URL")
	haToken := fs.String("home-assistant-access-token", "", "Home Assistant long-lived access token")
	migrateDown := fs.Bool("migrate-down", false, "roll back the most recent database migration and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := options{configPath: *configPath, migrateDown: *migrateDown}
	add := func(name string, o config.Override) {
		if fs.Changed(name) {
			opts.overrides = append(opts.overrides, o)
		}
	}
	add("log-level", func(c *config.Config) { c.Logging.Level = *logLevel })
	add("log-format", func(c *config.Config) { c.Logging.Format = *logFormat })
	add("storage-location", func(c *config.Config) {
		c.Bridge.StorageLocation = *storage
		// Let the database follow the new location.
		c.Database.Path = ""
	})
	add("web-port", func(c *config.Config) { c.API.Port = *webPort })
	add("home-assistant-url", func(c *config.Config) { c.HomeAssistant.URL = *haURL })
	add("home-assistant-access-token", func(c *config.Config) { c.HomeAssistant.AccessToken = *haToken })

	return opts, nil
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command-line options
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Matter hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath, opts.overrides...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", opts.configPath,
		"bridge_id", cfg.Bridge.ID,
		"level", cfg.Logging.Level,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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
	log.Info("database connected", "path", db.Path())

	if opts.migrateDown {
		if downErr := db.MigrateDown(ctx, migrations.FS); downErr != nil {
			return fmt.Errorf("rolling back migration: %w", downErr)
		}
		log.Info("rolled back latest database migration")
		return nil
	}

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Behaviors
	registry := behavior.NewRegistry()
	if regErr := clusters.Register(registry, deviceInfo(cfg.Bridge.BasicInformation)); regErr != nil {
		return fmt.Errorf("registering cluster behaviors: %w", regErr)
	}

	hub := homeassistant.NewHub()
	history := bridge.NewSQLiteAttributeHistoryRepository(db.DB)
	checks := map[string]api.HealthChecker{"database": db}

	reporterCfg := bridge.ReporterConfig{
		QueueSize: cfg.Bridge.ReportQueueSize,
		History:   history,
		Logger:    log.Component("reporter"),
	}

	// Connect to MQTT broker (optional)
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
		mqttClient.SetLogger(log.Component("mqtt"))
		reporterCfg.Publisher = mqttClient
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		reporterCfg.Telemetry = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	reporter := bridge.NewReporter(reporterCfg)
	br, err := bridge.New(bridge.Config{
		Hub:              hub,
		Registry:         registry,
		Filter:           bridge.NewFilter(cfg.Bridge.Filter),
		Endpoints:        bridge.NewSQLiteEndpointRepository(db.DB),
		Reporter:         reporter,
		History:          history,
		HistoryRetention: time.Duration(cfg.Database.HistoryRetention) * hoursPerDay * time.Hour,
		Logger:           log.Component("bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if mqttClient != nil {
		// Retained topics may have been lost with the broker.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected, republishing attributes", "reports", br.Republish())
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}

	haClient := homeassistant.NewClient(homeassistant.Config{
		URL:              cfg.HomeAssistant.URL,
		AccessToken:      cfg.HomeAssistant.AccessToken,
		ReconnectInitial: cfg.GetReconnectInitial(),
		ReconnectMax:     cfg.GetReconnectMax(),
		PingInterval:     cfg.GetPingInterval(),
	}, hub)
	haClient.SetLogger(log.Component("homeassistant"))

	server, err := api.New(api.Deps{
		Config:        cfg.API,
		Logger:        log.Component("api"),
		Bridge:        br,
		Entities:      hub,
		HomeAssistant: haClient,
		History:       history,
		Checks:        checks,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// The reporter outlives the bridge so the last reports are delivered
	// before MQTT and InfluxDB close.
	reporterCtx, stopReporter := context.WithCancel(context.WithoutCancel(ctx))
	go reporter.Run(reporterCtx)
	defer func() {
		stopReporter()
		<-reporter.Done()
		log.Info("reporter stopped", "stats", reporter.Stats())
	}()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return br.Run(gctx)
	})
	g.Go(func() error {
		if err := haClient.Run(gctx); err != nil {
			return fmt.Errorf("home assistant: %w", err)
		}
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal",
		"home_assistant", cfg.HomeAssistant.URL,
		"api_port", cfg.API.Port,
	)

	if err := g.Wait(); err != nil {
		return err
	}

	// Deferred cleanup runs in reverse order: API server, reporter drain,
	// InfluxDB, MQTT, database.
	log.Info("Matter hub stopped")
	return nil
}

// deviceInfo maps the configured identity onto the homeassistant
// capability's BasicInformation values.
func deviceInfo(c config.BasicInformationConfig) clusters.DeviceInfo {
	return clusters.DeviceInfo{
		VendorID:              c.VendorID,
		VendorName:            c.VendorName,
		ProductName:           c.ProductName,
		ProductLabel:          c.ProductLabel,
		HardwareVersion:       c.HardwareVersion,
		HardwareVersionString: c.HardwareVersionString,
		SoftwareVersion:       c.SoftwareVersion,
		SoftwareVersionString: c.SoftwareVersionString,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - checks: Components keyed by name
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	// Fixed order so the first failure reported is deterministic.
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		checker, ok := checks[name]
		if !ok {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
