package sensors

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Kerhoff/KinderboT/internal/models"
)

func testInput() Input {
	monday := models.NewDayRecord(models.Monday, "2026-02-09")
	monday.Checkin = "08:15 - 16:30"
	monday.NapDuration = 90
	monday.SetMealMenu(models.Breakfast, []string{"Cereal"}, 200, 150)
	monday.SetMealPercent(models.Breakfast, 80)
	monday.SetMealPercent(models.Lunch, 72.5)

	return Input{
		Child: models.Child{
			ChildID: 111, KindergartenID: 222, KindergartenName: "Happy Kids",
			FirstName: "Alice", LastName: "Smith", BirthDate: "2021-05-01", Gender: "f",
		},
		Days: models.Week{
			models.Monday:  monday,
			models.Tuesday: models.NewDayRecord(models.Tuesday, "2026-02-10"),
		},
		Newsfeed: []models.FeedItem{
			{ID: "1", Summary: "Invoice GH018654 — 380 EUR", Date: "2 days ago"},
			{ID: "2", Summary: "Maria: Carnival", Date: "3 days ago"},
		},
		LastUpdated: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
	}
}

func byID(sensors []Sensor) map[string]Sensor {
	out := make(map[string]Sensor, len(sensors))
	for _, s := range sensors {
		out[s.ID] = s
	}
	return out
}

func TestChildInfoSensor(t *testing.T) {
	s := byID(Build(testInput()))["kinderpedia_child_info_111_222"]

	if s.State != "Alice Smith" || s.Name != "alice" {
		t.Fatalf("unexpected sensor %+v", s)
	}
	if s.Attributes["gender"] != "female" || s.Attributes["kindergarten"] != "Happy Kids" {
		t.Fatalf("unexpected attributes %v", s.Attributes)
	}
	if s.Attributes["last_updated"] != "2026-02-21 12:00:00" {
		t.Fatalf("unexpected last_updated %v", s.Attributes["last_updated"])
	}
}

func TestGenderDefaultsToMale(t *testing.T) {
	in := testInput()
	in.Child.Gender = "m"
	s := byID(Build(in))["kinderpedia_child_info_111_222"]
	if s.Attributes["gender"] != "male" {
		t.Fatalf("gender = %v", s.Attributes["gender"])
	}
}

func TestDaySensors(t *testing.T) {
	sensors := byID(Build(testInput()))

	mon, ok := sensors["kinderpedia_day_111_222_monday"]
	if !ok {
		t.Fatalf("monday sensor missing")
	}
	if mon.State != "monday" || mon.Name != "alice monday" {
		t.Fatalf("unexpected sensor %+v", mon)
	}
	if mon.Attributes["checkin"] != "08:15 - 16:30" || mon.Attributes["date"] != "2026-02-09" {
		t.Fatalf("unexpected attributes %v", mon.Attributes)
	}
	if _, ok := mon.Attributes["name"]; ok {
		t.Fatalf("name must not be repeated as an attribute")
	}
	if _, ok := sensors["kinderpedia_day_111_222_wednesday"]; ok {
		t.Fatalf("no sensor expected for a day missing from the week")
	}
}

func TestWeekSensors(t *testing.T) {
	sensors := byID(Build(testInput()))

	breakfast := sensors["kinderpedia_breakfast_week_111_222"]
	if breakfast.State != "2026-02-21" || breakfast.Name != "alice breakfast week" {
		t.Fatalf("unexpected sensor %+v", breakfast)
	}
	if breakfast.Attributes["monday"] != 80.0 || breakfast.Attributes["friday"] != 0 {
		t.Fatalf("unexpected attributes %v", breakfast.Attributes)
	}
	if _, ok := breakfast.Attributes["saturday"]; ok {
		t.Fatalf("weekends are not aggregated")
	}

	if got := sensors["kinderpedia_lunch_week_111_222"].Attributes["monday"]; got != 72.5 {
		t.Fatalf("lunch monday = %v", got)
	}
	if got := sensors["kinderpedia_nap_week_111_222"].Attributes["monday"]; got != 90 {
		t.Fatalf("nap monday = %v", got)
	}
}

func TestNewsfeedSensor(t *testing.T) {
	in := testInput()
	for i := 0; i < 15; i++ {
		in.Newsfeed = append(in.Newsfeed, models.FeedItem{Summary: fmt.Sprintf("post %d", i)})
	}
	in.Newsfeed[0].Summary = strings.Repeat("ă", 300)

	s := byID(Build(in))["kinderpedia_newsfeed_111_222"]
	if state, _ := s.State.(string); len([]rune(state)) != 255 {
		t.Fatalf("state must be capped at 255 runes, got %d", len([]rune(state)))
	}
	if s.Attributes["latest_date"] != "2 days ago" {
		t.Fatalf("latest_date = %v", s.Attributes["latest_date"])
	}
	if recent := s.Attributes["recent"].([]RecentItem); len(recent) != 10 {
		t.Fatalf("expected 10 recent items, got %d", len(recent))
	}
}

func TestNewsfeedSensorEmpty(t *testing.T) {
	in := testInput()
	in.Newsfeed = nil

	s := byID(Build(in))["kinderpedia_newsfeed_111_222"]
	if s.State != nil {
		t.Fatalf("expected no state, got %v", s.State)
	}
	if _, ok := s.Attributes["recent"]; ok {
		t.Fatalf("no recent list expected")
	}
}

func TestRecordAttributesUsesPersistedNames(t *testing.T) {
	day := models.NewDayRecord(models.Monday, "2026-02-09")
	day.LunchPercent = 85
	day.SetMealMenu(models.Breakfast, []string{"Cereal"}, 200, 150)

	attrs := recordAttributes(day)
	if attrs["date"] != "2026-02-09" || attrs["checkin"] != models.Unknown {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if attrs["lunch_percent"] != 85.0 || attrs["breakfast_kcal"] != 200.0 {
		t.Fatalf("numeric attributes missing: %v", attrs)
	}
	if _, ok := attrs["absent"]; ok {
		t.Fatalf("absent should be omitted for a present day: %v", attrs)
	}
}
