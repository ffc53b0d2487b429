// notifyd is the notification delivery daemon for the Ibb city directory.
// It hosts the dispatch HTTP API, the outbox delivery worker and the
// sweep/retention maintenance jobs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/api"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/delivery"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/notify"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/provider"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/scheduler"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for notifyd state data
	DefaultStateDir = "/var/lib/notifyd"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "notifyd.db"
	// DefaultAPIAddr is the default HTTP listen address
	DefaultAPIAddr = ":8080"
	// DefaultSweepCron reclaims stale outbox entries every five minutes
	DefaultSweepCron = "*/5 * * * *"
	// DefaultRetentionCron purges old rows nightly
	DefaultRetentionCron = "30 3 * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("notifyd failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("notifyd exited successfully")
}

// Config holds environment configuration
type Config struct {
	DBDriver      string
	DatabaseURL   string
	StateDir      string
	APIAddr       string
	SweepCron     string
	RetentionCron string
	PollSeconds   int
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	apiAddr       *string
	sweepCron     *string
	retentionCron *string
	pollSeconds   *int
}

// initializeLogger sets up structured logging; NOTIFYD_DEBUG raises the level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("NOTIFYD_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DBDriver:      os.Getenv("NOTIFYD_DB_DRIVER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("NOTIFYD_STATE_DIR"),
		APIAddr:       os.Getenv("API_ADDR"),
		SweepCron:     os.Getenv("SWEEP_SCHEDULE"),
		RetentionCron: os.Getenv("RETENTION_SCHEDULE"),
		PollSeconds:   util.ParseIntEnv("DELIVERY_POLL_SECONDS", 5),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	if config.SweepCron == "" {
		config.SweepCron = DefaultSweepCron
	}
	if config.RetentionCron == "" {
		config.RetentionCron = DefaultRetentionCron
	}

	slog.Debug("environment variables loaded",
		"NOTIFYD_DB_DRIVER", config.DBDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"NOTIFYD_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"SWEEP_SCHEDULE", config.SweepCron,
		"RETENTION_SCHEDULE", config.RetentionCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for notifyd data (overrides $NOTIFYD_STATE_DIR)"),
		dbDriver:      flag.String("db-driver", config.DBDriver, "database driver: sqlite3 or postgres (overrides $NOTIFYD_DB_DRIVER)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		sweepCron:     flag.String("sweep-cron", config.SweepCron, "cron cadence of the stale-entry sweep (overrides $SWEEP_SCHEDULE)"),
		retentionCron: flag.String("retention-cron", config.RetentionCron, "cron cadence of the retention purge (overrides $RETENTION_SCHEDULE)"),
		pollSeconds:   flag.Int("poll-seconds", config.PollSeconds, "delivery worker poll interval in seconds (overrides $DELIVERY_POLL_SECONDS)"),
	}
	flag.Parse()
	return flags
}

// openStore picks the backend from the driver/DSN. Postgres is selected by an
// explicit driver or a postgres:// DSN; everything else is SQLite in the
// state directory.
func openStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	driver := strings.ToLower(*flags.dbDriver)
	isPostgres := driver == "postgres" ||
		strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	if isPostgres {
		slog.Info("Opening Postgres store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	if dsn == "" {
		dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
	}
	slog.Info("Opening SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildRegistry registers every provider adapter whose credentials are
// configured. An unconfigured provider is simply absent; entries targeting it
// dead-letter after exhausting attempts.
func buildRegistry() *provider.Registry {
	var adapters []provider.Adapter

	if fcm, err := provider.NewFCMAdapter(); err != nil {
		slog.Warn("FCM adapter not configured", "reason", err)
	} else {
		adapters = append(adapters, fcm)
	}
	if onesignal, err := provider.NewOneSignalAdapter(); err != nil {
		slog.Warn("OneSignal adapter not configured", "reason", err)
	} else {
		adapters = append(adapters, onesignal)
	}
	if email, err := provider.NewEmailAdapter(); err != nil {
		slog.Warn("Email adapter not configured", "reason", err)
	} else {
		adapters = append(adapters, email)
	}

	reg := provider.NewRegistry(adapters...)
	slog.Info("Provider registry built", "providers", reg.Names())
	return reg
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := buildRegistry()
	dispatcher := notify.NewDispatcher(st)
	worker := delivery.NewWorker(st, registry, time.Duration(*flags.pollSeconds)*time.Second)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	sweeper := delivery.NewSweeper(st, 5*time.Minute)
	if err := sched.AddJob("sweep", *flags.sweepCron, sweeper.Sweep); err != nil {
		return err
	}
	retention := delivery.NewRetention(st)
	if err := sched.AddJob("retention", *flags.retentionCron, retention.Purge); err != nil {
		return err
	}

	// One sweep up front so entries stranded by a crash re-enter the due
	// window before the first cron tick.
	sweeper.Sweep()

	go worker.Run(ctx)

	server := api.NewServer(*flags.apiAddr, st, dispatcher)
	return server.Run(ctx)
}
