package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	OwnerID       int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	// Sent back by Telegram in X-Telegram-Bot-Api-Secret-Token (required if WebhookMode is true)
	WebhookSecret string

	// Storage: PostgreSQL when DatabaseURL is set, SQLite otherwise
	DatabaseURL string
	SQLitePath  string

	// Backup configuration
	BackupChannelID   int64
	BackupInterval    time.Duration
	BackupFirstRun    time.Duration
	BackupDir         string
	StartupImportFile string

	// HTTP server
	Port           string
	MetricsEnabled bool

	// Logging
	LogLevel string
	LogDev   bool
	LogFile  string
}

// DotEnv loads .env into the process environment if the file exists
func DotEnv() bool {
	return godotenv.Load() == nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SQLITE_PATH", "bot_database.db")
	v.SetDefault("BACKUP_INTERVAL", "24h")
	v.SetDefault("BACKUP_FIRST_RUN", "10s")
	v.SetDefault("BACKUP_DIR", ".")
	v.SetDefault("STARTUP_IMPORT_FILE", "user_report.json")
	v.SetDefault("PORT", "5000")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("WEBHOOK_MODE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	return v
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	v := newViper()
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = strings.TrimSpace(v.GetString("BOT_TOKEN"))
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	// Owner ID (required)
	ownerID, err := parseID("OWNER_ID", v.GetString("OWNER_ID"))
	if err != nil {
		return nil, err
	}
	config.OwnerID = ownerID

	// Bot mode configuration
	config.WebhookMode = v.GetBool("WEBHOOK_MODE")
	if config.WebhookMode {
		config.WebhookURL = strings.TrimRight(v.GetString("WEBHOOK_URL"), "/")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
		config.WebhookSecret = strings.TrimSpace(v.GetString("WEBHOOK_SECRET"))
		if err := validateSecret(config.WebhookSecret); err != nil {
			return nil, err
		}
	}

	config.DatabaseURL = v.GetString("DATABASE_URL")
	config.SQLitePath = v.GetString("SQLITE_PATH")

	// Backups go to the owner unless a channel is configured
	config.BackupChannelID = config.OwnerID
	if raw := v.GetString("BACKUP_CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKUP_CHANNEL_ID: %s", raw)
		}
		config.BackupChannelID = id
	}

	if config.BackupInterval, err = parseDuration("BACKUP_INTERVAL", v.GetString("BACKUP_INTERVAL")); err != nil {
		return nil, err
	}
	if config.BackupInterval == 0 {
		return nil, fmt.Errorf("invalid BACKUP_INTERVAL: must be positive")
	}
	if config.BackupFirstRun, err = parseDuration("BACKUP_FIRST_RUN", v.GetString("BACKUP_FIRST_RUN")); err != nil {
		return nil, err
	}
	config.BackupDir = v.GetString("BACKUP_DIR")
	config.StartupImportFile = v.GetString("STARTUP_IMPORT_FILE")

	config.Port = v.GetString("PORT")
	if _, err := strconv.Atoi(config.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	config.MetricsEnabled = v.GetBool("METRICS_ENABLED")

	config.LogLevel = v.GetString("LOG_LEVEL")
	config.LogDev = v.GetBool("LOG_DEV")
	config.LogFile = v.GetString("LOG_FILE")

	return config, nil
}

// validateSecret enforces Telegram's secret_token alphabet: 1-256 of A-Z, a-z, 0-9, _ and -
func validateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_MODE is true")
	}
	if len(secret) > 256 {
		return fmt.Errorf("invalid WEBHOOK_SECRET: longer than 256 characters")
	}
	for _, r := range secret {
		ok := r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid WEBHOOK_SECRET: unexpected character %q", r)
		}
	}
	return nil
}

func parseID(name, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return id, nil
}

func parseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return d, nil
}
