package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Kerhoff/KinderboT/internal/kinderpedia"
)

// Config holds all configuration for the application
type Config struct {
	KinderpediaEmail    string `validate:"required,email"`
	KinderpediaPassword string `validate:"required"`
	KinderpediaBaseURL  string `validate:"required,url"`
	KinderpediaAPIKey   string `validate:"required"`

	DatabaseURL    string
	MigrationsPath string `validate:"required"`
	HistoryDir     string `validate:"required_without=DatabaseURL"`

	LogLevel       string `validate:"oneof=trace debug info warn warning error fatal panic"`
	Port           string `validate:"required,numeric"`
	PrometheusPort string `validate:"required,numeric"`

	TelegramToken  string
	TelegramChatID int64

	RefreshInterval        time.Duration `validate:"gte=1m"`
	BackfillDelay          time.Duration `validate:"gte=0s"`
	ArchiveSchedule        string        `validate:"required"`
	NewsfeedIncludeGallery bool
	Timezone               string `validate:"required"`
	Location               *time.Location
}

// Load loads configuration from a .env file, if any, and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		KinderpediaEmail:    os.Getenv("KINDERPEDIA_EMAIL"),
		KinderpediaPassword: os.Getenv("KINDERPEDIA_PASSWORD"),
		KinderpediaBaseURL:  getEnvOrDefault("KINDERPEDIA_BASE_URL", kinderpedia.DefaultBaseURL),
		KinderpediaAPIKey:   getEnvOrDefault("KINDERPEDIA_API_KEY", kinderpedia.DefaultAPIKey),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MigrationsPath:      getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		HistoryDir:          getEnvOrDefault("HISTORY_DIR", "data"),
		LogLevel:            strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Port:                getEnvOrDefault("PORT", "8080"),
		PrometheusPort:      getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		ArchiveSchedule:     getEnvOrDefault("ARCHIVE_SCHEDULE", "30 0 * * 1"),
		Timezone:            getEnvOrDefault("TIMEZONE", "Europe/Bucharest"),
	}

	var err error
	if cfg.TelegramChatID, err = getInt64("TELEGRAM_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackfillDelay, err = getDuration("BACKFILL_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.NewsfeedIncludeGallery, err = getBool("NEWSFEED_INCLUDE_GALLERY", false); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, describe(err)
	}

	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// UsesDatabase reports whether history is kept in Postgres rather than files
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// TelegramEnabled reports whether the Telegram bot should be started
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// describe turns validation failures into one readable error naming the
// offending environment variables
func describe(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", envNames[fe.Field()], fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"KinderpediaEmail":    "KINDERPEDIA_EMAIL",
	"KinderpediaPassword": "KINDERPEDIA_PASSWORD",
	"KinderpediaBaseURL":  "KINDERPEDIA_BASE_URL",
	"KinderpediaAPIKey":   "KINDERPEDIA_API_KEY",
	"MigrationsPath":      "MIGRATIONS_PATH",
	"HistoryDir":          "HISTORY_DIR",
	"LogLevel":            "LOG_LEVEL",
	"Port":                "PORT",
	"PrometheusPort":      "PROMETHEUS_PORT",
	"RefreshInterval":     "REFRESH_INTERVAL",
	"BackfillDelay":       "BACKFILL_DELAY",
	"ArchiveSchedule":     "ARCHIVE_SCHEDULE",
	"Timezone":            "TIMEZONE",
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
