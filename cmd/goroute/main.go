package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goroute-booking/internal/common/config"
	"github.com/goroute-booking/internal/common/db"
	"github.com/goroute-booking/internal/common/discord"
	"github.com/goroute-booking/internal/common/logger"
	"github.com/goroute-booking/internal/common/maintenance"
	"github.com/goroute-booking/internal/common/telemetry"
	"github.com/goroute-booking/internal/preferences"
	"github.com/goroute-booking/internal/transit"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("Failed to load .env file: " + err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Log to the file when one is configured so the console stays readable.
	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.Console = cfg.Logging.FilePath == ""
	loggerConfig.File = cfg.Logging.FilePath != ""
	loggerConfig.FilePath = cfg.Logging.FilePath
	if alerts := discord.NewClient(cfg.Logging.DiscordURL, cfg.Telemetry.ServiceName); alerts.Enabled() {
		loggerConfig.Alerts = alerts
	}
	log := logger.NewFromConfig(loggerConfig)

	log.Info("GoRoute client starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"api", cfg.API.BaseURL,
		"preferences_backend", cfg.Preferences.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Insecure, log)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	client, err := transit.NewClient(transit.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		RateLimitPerMin: cfg.API.RateLimitPerMin,
		Transport:       telemetry.Transport(nil),
	}, log)
	if err != nil {
		log.Fatal("Failed to create transit client", "error", err)
	}

	var store preferences.Store
	switch cfg.Preferences.Backend {
	case "postgres":
		if err := cfg.Database.Validate(); err != nil {
			log.Fatal("Invalid database configuration", "error", err)
		}
		database, err := db.New(ctx, cfg.Database.ConnectionString(), log)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		defer database.Close()

		pg := preferences.NewPostgresStore(database.DB())
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate preferences", "error", err)
		}
		store = pg

		scheduler := maintenance.NewCleanupScheduler(pg, log, maintenance.SchedulerConfig{
			Interval:      cfg.Preferences.PruneInterval,
			InitialDelay:  time.Minute,
			RetentionDays: cfg.Preferences.RetentionDays,
		})
		if err := scheduler.Start(ctx); err != nil {
			log.Error("Preferences cleanup disabled", "error", err)
		} else {
			defer scheduler.Stop()
		}
	default:
		store = preferences.NewFileStore(cfg.Preferences.FilePath)
	}

	prefs := preferences.Init(ctx, store, cfg.Preferences.StorageKey, preferences.Defaults(), log)

	sh := newShell(ctx, client, prefs, os.Stdout, log, cfg.Booking.WaitlistCloseDelay)
	done := make(chan error, 1)
	go func() { done <- sh.run(os.Stdin) }()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-done:
		if err != nil {
			log.Error("Reading input failed", "error", err)
		}
	}

	log.Info("GoRoute client stopped")
}
