package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/IntakeFlow/internal/api"
	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/checkpoint"
	"github.com/BTreeMap/IntakeFlow/internal/funnel"
	"github.com/BTreeMap/IntakeFlow/internal/lockfile"
	"github.com/BTreeMap/IntakeFlow/internal/notify"
	"github.com/BTreeMap/IntakeFlow/internal/recovery"
	"github.com/BTreeMap/IntakeFlow/internal/scheduler"
	"github.com/BTreeMap/IntakeFlow/internal/store"
	"github.com/BTreeMap/IntakeFlow/internal/submission"
	"github.com/BTreeMap/IntakeFlow/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for IntakeFlow state data
	DefaultStateDir = "/var/lib/intakeflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "intakeflow.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release state directory lock", "error", err)
		}
	}()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()

	engineOpts, collector := buildEngineOptions(flags, st)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping IntakeFlow with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"checkpoint_url_set", *flags.checkpointURL != "",
		"records_url_set", *flags.recordsURL != "")

	engine := funnel.New(catalog.Intake(), st, engineOpts...)
	defer engine.Close()

	// Restore in-progress sessions and retry undelivered submissions before
	// accepting traffic.
	if _, err := recovery.Run(context.Background(), st, engine, collector); err != nil {
		slog.Error("Failed to recover persisted state", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(*flags.retrySchedule, func() {
		if _, err := collector.RetryPending(context.Background()); err != nil {
			slog.Warn("Scheduled submission retry pass failed", "error", err)
		}
	}); err != nil {
		slog.Error("Failed to schedule submission retry job", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(engine, st, apiOpts...)
	if err := server.Run(); err != nil {
		slog.Error("IntakeFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("IntakeFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	APIAddr          string
	CheckpointURL    string
	RecordsURL       string
	RetrySchedule    string
	SMSConfirmations bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	apiAddr       *string
	checkpointURL *string
	recordsURL    *string
	retrySchedule *string
	smsEnabled    *bool
}

// initializeLogger sets up structured logging; debug level unless
// INTAKEFLOW_DEBUG disables it.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("INTAKEFLOW_DEBUG", false) {
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
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("INTAKEFLOW_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		CheckpointURL:    os.Getenv("CHECKPOINT_URL"),
		RecordsURL:       os.Getenv("RECORDS_URL"),
		RetrySchedule:    os.Getenv("RETRY_SCHEDULE"),
		SMSConfirmations: util.ParseBoolEnv("SMS_CONFIRMATIONS", false),
	}

	if config.RetrySchedule == "" {
		config.RetrySchedule = scheduler.DefaultRetrySchedule
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTAKEFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("INTAKEFLOW_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTAKEFLOW_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"CHECKPOINT_URL_SET", config.CheckpointURL != "",
		"RECORDS_URL_SET", config.RecordsURL != "",
		"SMS_CONFIRMATIONS", config.SMSConfirmations)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for IntakeFlow data (overrides $INTAKEFLOW_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		checkpointURL: flag.String("checkpoint-url", config.CheckpointURL, "remote checkpoint endpoint URL (overrides $CHECKPOINT_URL)"),
		recordsURL:    flag.String("records-url", config.RecordsURL, "record creation endpoint URL (overrides $RECORDS_URL)"),
		retrySchedule: flag.String("retry-schedule", config.RetrySchedule, "cron schedule for the pending-submission retry pass (overrides $RETRY_SCHEDULE)"),
		smsEnabled:    flag.Bool("sms-confirmations", config.SMSConfirmations, "send confirmation SMS after successful submission (overrides $SMS_CONFIRMATIONS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"checkpointURL_set", *flags.checkpointURL != "",
		"recordsURL_set", *flags.recordsURL != "",
		"smsEnabled", *flags.smsEnabled)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
		slog.Debug("State directory created successfully", "state_dir", stateDir)
	}
	return nil
}

// buildStore constructs the session store from the configured DSN
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildEngineOptions constructs funnel engine configuration options
func buildEngineOptions(flags Flags, st store.Store) ([]funnel.Option, *submission.Collector) {
	var engineOpts []funnel.Option

	var checkpointOpts []checkpoint.Option
	if *flags.checkpointURL != "" {
		checkpointOpts = append(checkpointOpts, checkpoint.WithEndpoint(*flags.checkpointURL))
	}
	engineOpts = append(engineOpts, funnel.WithCheckpointClient(checkpoint.NewClient(st, checkpointOpts...)))

	var collectorOpts []submission.Option
	if *flags.recordsURL != "" {
		collectorOpts = append(collectorOpts, submission.WithEndpoint(*flags.recordsURL))
	}
	// The collector is shared between the engine and the retry scheduler.
	collector := submission.NewCollector(st, collectorOpts...)
	engineOpts = append(engineOpts, funnel.WithCollector(collector))

	if *flags.smsEnabled {
		notifier, err := notify.NewClient()
		if err != nil {
			slog.Warn("SMS confirmations enabled but Twilio client unavailable, continuing without", "error", err)
		} else {
			engineOpts = append(engineOpts, funnel.WithNotifier(notifier))
		}
	}
	return engineOpts, collector
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
