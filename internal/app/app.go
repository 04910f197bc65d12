package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"userinfobot/internal/backup"
	"userinfobot/internal/bot"
	"userinfobot/internal/config"
	"userinfobot/internal/logger"
	"userinfobot/internal/server"
	"userinfobot/internal/storage"
	"userinfobot/internal/storage/postgres"
	"userinfobot/internal/storage/sqlite"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        storage.Storage
	bot       *bot.Bot
	scheduler *backup.Scheduler
	server    *server.Server
}

// New creates and initializes a new application instance
func New(ctx context.Context) (*App, error) {
	// Load .env file if it exists
	dotenv := config.DotEnv()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if !dotenv {
		log.Debug("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: log}

	log.Info("Starting User Info Bot...")

	// Initialize database
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.scheduler = backup.NewScheduler(backup.Config{
		Destination: cfg.BackupChannelID,
		Dir:         cfg.BackupDir,
		Interval:    cfg.BackupInterval,
		FirstRun:    cfg.BackupFirstRun,
	}, app.bot.Client(), app.db, clockwork.NewRealClock(), log.Named("backup"))

	// Initialize HTTP server
	opts := server.Options{
		Addr:          ":" + cfg.Port,
		ExposeMetrics: cfg.MetricsEnabled,
	}
	if cfg.WebhookMode {
		opts.WebhookPath = bot.WebhookPath
		opts.Webhook = app.bot.WebhookHandler()
	}
	app.server = server.New(opts, log.Named("http"))

	return app, nil
}

// initDatabase picks PostgreSQL when a DSN is configured and SQLite otherwise
func (a *App) initDatabase(ctx context.Context) error {
	var db storage.Storage
	if a.config.DatabaseURL != "" {
		a.logger.Info("Connecting to PostgreSQL")
		pg, err := postgres.NewPostgresDB(ctx, a.config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db = pg
	} else {
		a.logger.Info("Using SQLite database", zap.String("path", a.config.SQLitePath))
		lite, err := sqlite.NewSQLiteDB(a.config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open SQLite: %w", err)
		}
		db = lite
	}

	// Initialize database schema
	if err := db.Initialize(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.db, bot.Settings{
		OwnerID:           a.config.OwnerID,
		BackupDestination: a.config.BackupChannelID,
		BackupDir:         a.config.BackupDir,
		StartupImportFile: a.config.StartupImportFile,
		WebhookSecret:     a.config.WebhookSecret,
	}, clockwork.NewRealClock(), a.logger.Named("bot"))
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	a.bot = telegramBot
	return nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.server.Start()

	if err := a.scheduler.Start(ctx); err != nil {
		a.logger.Error("Failed to start backup scheduler", zap.Error(err))
	}

	// Start bot in appropriate mode; both block until ctx is cancelled
	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(ctx, a.config.WebhookURL); err != nil {
			stop()
			_ = a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		a.logger.Info("Starting bot in POLLING mode")
		a.bot.Start(ctx)
	}

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	defer func() { _ = a.logger.Sync() }()

	if err := a.scheduler.Shutdown(); err != nil {
		a.logger.Warn("Backup scheduler shutdown error", zap.Error(err))
	}

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// Let queued updates finish before the store goes away
	a.bot.Wait()

	// Close database
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
