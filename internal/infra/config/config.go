package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL string

	// External MIS view connection. Empty means MIS-backed metrics are
	// disabled and the local metric store is the only source.
	MISDatabaseURL string
	MISDriver      string // "postgres" unless the view lives elsewhere
	MISViewName    string
	MISMapFile     string // YAML field-mapping file

	LogLevel    string
	Environment string

	// Directory holding one YAML form-schema file per record type.
	SchemaDir string

	// Notification delivery backend: "console", "email" or "telegram".
	NotifyChannel   string
	SendgridAPIKey  string
	NotifyFromEmail string
	NotifyToEmail   string
	TelegramToken   string
	TelegramChatID  int64

	CronSpecAlertRun     string
	AlertDedupWindowDays int

	// When true, CSV imports create unknown students/courses on the fly.
	ImportAutoProvision bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.MISDatabaseURL = os.Getenv("MIS_DATABASE_URL")
	cfg.MISDriver = os.Getenv("MIS_DRIVER")
	if cfg.MISDriver == "" {
		cfg.MISDriver = "postgres"
	}
	cfg.MISViewName = os.Getenv("MIS_VIEW_NAME")
	cfg.MISMapFile = os.Getenv("MIS_MAP_FILE")
	if cfg.MISMapFile == "" {
		cfg.MISMapFile = "config/mis.yaml"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.SchemaDir = os.Getenv("SCHEMA_DIR")
	if cfg.SchemaDir == "" {
		cfg.SchemaDir = "config/schemas"
	}

	cfg.NotifyChannel = strings.ToLower(os.Getenv("NOTIFY_CHANNEL"))
	if cfg.NotifyChannel == "" {
		cfg.NotifyChannel = "console"
	}
	switch cfg.NotifyChannel {
	case "console":
	case "email":
		cfg.SendgridAPIKey = os.Getenv("SENDGRID_API_KEY")
		if cfg.SendgridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is not set (required for NOTIFY_CHANNEL=email)")
		}
		cfg.NotifyFromEmail = os.Getenv("NOTIFY_FROM_EMAIL")
		if cfg.NotifyFromEmail == "" {
			cfg.NotifyFromEmail = "noreply@localhost"
		}
		cfg.NotifyToEmail = os.Getenv("NOTIFY_TO_EMAIL")
		if cfg.NotifyToEmail == "" {
			return nil, fmt.Errorf("NOTIFY_TO_EMAIL is not set (required for NOTIFY_CHANNEL=email)")
		}
	case "telegram":
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set (required for NOTIFY_CHANNEL=telegram)")
		}
		chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is not set (required for NOTIFY_CHANNEL=telegram)")
		}
		var err error
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_CHANNEL: %s", cfg.NotifyChannel)
	}

	cfg.CronSpecAlertRun = os.Getenv("CRON_SPEC_ALERT_RUN")
	if cfg.CronSpecAlertRun == "" {
		cfg.CronSpecAlertRun = "0 6 * * *" // Default: 06:00 daily
	}

	dedupStr := os.Getenv("ALERT_DEDUP_WINDOW_DAYS")
	if dedupStr == "" {
		cfg.AlertDedupWindowDays = 7
	} else {
		days, err := strconv.Atoi(dedupStr)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid ALERT_DEDUP_WINDOW_DAYS: %q", dedupStr)
		}
		cfg.AlertDedupWindowDays = days
	}

	cfg.ImportAutoProvision = strings.ToLower(os.Getenv("IMPORT_AUTO_PROVISION")) == "true"

	return cfg, nil
}
