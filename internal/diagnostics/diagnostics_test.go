package diagnostics

import (
	"testing"
	"time"

	"github.com/Kerhoff/KinderboT/internal/config"
	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/service"
)

func testSnapshot() *service.Snapshot {
	monday := models.NewDayRecord(models.Monday, "2026-02-09")
	monday.Checkin = "08:15 - 16:30"
	return &service.Snapshot{
		LastUpdated: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
		Children: map[string]*service.ChildData{
			"111_222": {
				Child: models.Child{
					ChildID: 111, KindergartenID: 222, KindergartenName: "Happy Kids",
					Avatar: "https://cdn/a.png", FirstName: "Alice", LastName: "Smith",
					BirthDate: "2021-05-01", Gender: "f",
				},
				Days: models.Week{models.Monday: monday},
			},
		},
	}
}

func TestRedactsCredentials(t *testing.T) {
	cfg := &config.Config{
		KinderpediaEmail:    "parent@example.com",
		KinderpediaPassword: "secret",
		DatabaseURL:         "postgres://user:pw@db/kinderbot",
		RefreshInterval:     15 * time.Minute,
	}
	report := Build(cfg, nil, nil)

	for _, key := range []string{"email", "password", "database_url"} {
		if report.Config[key] != Redacted {
			t.Errorf("%s not redacted: %v", key, report.Config[key])
		}
	}
	if report.Config["refresh_interval"] != "15m0s" {
		t.Errorf("non-secret values must be kept: %v", report.Config["refresh_interval"])
	}
}

func TestRedactsChildPII(t *testing.T) {
	report := Build(nil, testSnapshot(), map[string]int{"111_222": 4})

	children := report.Data["children"].(map[string]any)
	entry := children["111_222"].(map[string]any)
	child := entry["child"].(map[string]any)

	for _, key := range []string{"first_name", "last_name", "birth_date", "avatar"} {
		if child[key] != Redacted {
			t.Errorf("%s not redacted: %v", key, child[key])
		}
	}
	if child["child_id"] != int64(111) || child["kindergarten_id"] != int64(222) {
		t.Errorf("identifiers must be kept: %v", child)
	}
	if entry["history_weeks"] != 4 {
		t.Errorf("history_weeks = %v", entry["history_weeks"])
	}
}

func TestIncludesDayData(t *testing.T) {
	report := Build(nil, testSnapshot(), nil)

	entry := report.Data["children"].(map[string]any)["111_222"].(map[string]any)
	days := entry["days"].(models.Week)
	if days[models.Monday].Checkin != "08:15 - 16:30" {
		t.Fatalf("day data must not be redacted: %+v", days)
	}
	if report.Data["last_updated"] != "2026-02-21 12:00:00" {
		t.Fatalf("last_updated = %v", report.Data["last_updated"])
	}
}

func TestEmptySnapshot(t *testing.T) {
	report := Build(nil, nil, nil)
	if len(report.Data) != 0 {
		t.Fatalf("expected empty data, got %v", report.Data)
	}
}

func TestRedactLeavesInputUntouched(t *testing.T) {
	in := map[string]any{"email": "a@b.c", "other": 1}
	out := Redact(in, []string{"email", "missing"})
	if in["email"] != "a@b.c" {
		t.Fatalf("input was modified")
	}
	if out["email"] != Redacted || out["other"] != 1 {
		t.Fatalf("unexpected output %v", out)
	}
	if _, ok := out["missing"]; ok {
		t.Fatalf("absent keys must not be added")
	}
}
