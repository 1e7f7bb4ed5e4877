package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("KINDERPEDIA_EMAIL", "parent@example.com")
	t.Setenv("KINDERPEDIA_PASSWORD", "secret")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.BackfillDelay != 5*time.Second {
		t.Errorf("BackfillDelay = %v", cfg.BackfillDelay)
	}
	if cfg.ArchiveSchedule != "30 0 * * 1" {
		t.Errorf("ArchiveSchedule = %q", cfg.ArchiveSchedule)
	}
	if cfg.NewsfeedIncludeGallery {
		t.Errorf("gallery entries must be excluded by default")
	}
	if cfg.UsesDatabase() || cfg.TelegramEnabled() {
		t.Errorf("database and telegram must be off by default")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v", cfg.Location)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_INTERVAL", "30m")
	t.Setenv("BACKFILL_DELAY", "0s")
	t.Setenv("NEWSFEED_INCLUDE_GALLERY", "true")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("DATABASE_URL", "postgres://localhost/kinderbot")
	t.Setenv("HISTORY_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RefreshInterval != 30*time.Minute || cfg.BackfillDelay != 0 {
		t.Errorf("unexpected durations %v %v", cfg.RefreshInterval, cfg.BackfillDelay)
	}
	if !cfg.NewsfeedIncludeGallery || !cfg.TelegramEnabled() || cfg.TelegramChatID != -1001 || !cfg.UsesDatabase() {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("KINDERPEDIA_EMAIL", "")
	t.Setenv("KINDERPEDIA_PASSWORD", "")
	t.Setenv("TIMEZONE", "UTC")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "KINDERPEDIA_EMAIL") || !strings.Contains(err.Error(), "KINDERPEDIA_PASSWORD") {
		t.Fatalf("error should name the variables: %v", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := map[string]string{
		"REFRESH_INTERVAL":         "soon",
		"BACKFILL_DELAY":           "-1s",
		"NEWSFEED_INCLUDE_GALLERY": "maybe",
		"TELEGRAM_CHAT_ID":         "chat",
		"LOG_LEVEL":                "loud",
		"PORT":                     "http",
		"TIMEZONE":                 "Mars/Olympus",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestRefreshIntervalLowerBound(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_INTERVAL", "10s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for a refresh interval under a minute")
	}
}
