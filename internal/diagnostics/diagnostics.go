// Package diagnostics builds a support dump with credentials and personal
// data redacted.
package diagnostics

import (
	"sort"

	"github.com/Kerhoff/KinderboT/internal/config"
	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/service"
	"github.com/Kerhoff/KinderboT/internal/sensors"
)

// Redacted replaces sensitive values
const Redacted = "**REDACTED**"

var (
	configSecrets = []string{"email", "password", "database_url", "telegram_token", "api_key"}
	childSecrets  = []string{"avatar", "first_name", "last_name", "birth_date"}
)

// Report is the diagnostics document
type Report struct {
	Config map[string]any `json:"config"`
	Data   map[string]any `json:"data"`
}

// Build assembles a report from the configuration, the last snapshot and the
// archived week counts. A nil snapshot yields empty data.
func Build(cfg *config.Config, snap *service.Snapshot, historyWeeks map[string]int) Report {
	return Report{
		Config: Redact(configView(cfg), configSecrets),
		Data:   redactSnapshot(snap, historyWeeks),
	}
}

// Redact returns a copy of m with the given keys replaced, when present
func Redact(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		if _, ok := out[k]; ok {
			out[k] = Redacted
		}
	}
	return out
}

func configView(cfg *config.Config) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"email":                    cfg.KinderpediaEmail,
		"password":                 cfg.KinderpediaPassword,
		"base_url":                 cfg.KinderpediaBaseURL,
		"api_key":                  cfg.KinderpediaAPIKey,
		"database_url":             cfg.DatabaseURL,
		"history_dir":              cfg.HistoryDir,
		"telegram_token":           cfg.TelegramToken,
		"refresh_interval":         cfg.RefreshInterval.String(),
		"backfill_delay":           cfg.BackfillDelay.String(),
		"archive_schedule":         cfg.ArchiveSchedule,
		"newsfeed_include_gallery": cfg.NewsfeedIncludeGallery,
		"timezone":                 cfg.Timezone,
	}
}

func childView(c models.Child) map[string]any {
	return map[string]any{
		"child_id":          c.ChildID,
		"kindergarten_id":   c.KindergartenID,
		"kindergarten_name": c.KindergartenName,
		"avatar":            c.Avatar,
		"first_name":        c.FirstName,
		"last_name":         c.LastName,
		"birth_date":        c.BirthDate,
		"gender":            c.Gender,
	}
}

func redactSnapshot(snap *service.Snapshot, historyWeeks map[string]int) map[string]any {
	if snap == nil {
		return map[string]any{}
	}

	keys := make([]string, 0, len(snap.Children))
	for k := range snap.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make(map[string]any, len(keys))
	for _, key := range keys {
		data := snap.Children[key]
		children[key] = map[string]any{
			"child":         Redact(childView(data.Child), childSecrets),
			"days":          data.Days,
			"history_weeks": historyWeeks[key],
			"newsfeed":      len(data.Newsfeed),
		}
	}

	return map[string]any{
		"last_updated": snap.LastUpdated.UTC().Format(sensors.TimestampLayout),
		"children":     children,
	}
}
