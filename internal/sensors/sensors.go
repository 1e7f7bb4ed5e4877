// Package sensors renders per-child state/attribute views: child info, one
// sensor per weekday, weekly aggregates and the newsfeed.
package sensors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kerhoff/KinderboT/internal/models"
)

const (
	// TimestampLayout formats last_updated attributes
	TimestampLayout = "2006-01-02 15:04:05"

	stateLimit  = 255
	recentLimit = 10
)

// Sensor is one state with its attributes
type Sensor struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	State      any            `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Input is the data sensors are built from
type Input struct {
	Child       models.Child
	Days        models.Week
	Newsfeed    []models.FeedItem
	LastUpdated time.Time
}

// weekFields are the day fields exposed as Monday-Friday aggregates
var weekFields = []struct {
	kind  string
	field string
	value func(models.DayRecord) any
}{
	{"breakfast_week", "breakfast_percent", func(d models.DayRecord) any { return d.BreakfastPercent }},
	{"lunch_week", "lunch_percent", func(d models.DayRecord) any { return d.LunchPercent }},
	{"nap_week", "nap_duration", func(d models.DayRecord) any { return d.NapDuration }},
}

// Build returns every sensor of one child in a stable order
func Build(in Input) []Sensor {
	updated := in.LastUpdated.UTC().Format(TimestampLayout)

	out := []Sensor{childInfo(in, updated)}
	for _, wf := range weekFields {
		out = append(out, weekSensor(in, updated, wf.kind, wf.value))
	}
	out = append(out, newsfeed(in, updated))
	for _, weekday := range models.Weekdays {
		if day, ok := in.Days[weekday]; ok {
			out = append(out, daySensor(in, updated, weekday, day))
		}
	}
	return out
}

func id(kind string, c models.Child) string {
	return fmt.Sprintf("kinderpedia_%s_%s", kind, c.Key())
}

func name(c models.Child, suffix string) string {
	n := strings.ToLower(c.FirstName)
	if suffix == "" {
		return n
	}
	return n + " " + suffix
}

func childInfo(in Input, updated string) Sensor {
	gender := "male"
	if strings.EqualFold(in.Child.Gender, "f") {
		gender = "female"
	}
	return Sensor{
		ID:    id("child_info", in.Child),
		Name:  name(in.Child, ""),
		State: in.Child.FullName(),
		Attributes: map[string]any{
			"birth_date":   in.Child.BirthDate,
			"gender":       gender,
			"kindergarten": in.Child.KindergartenName,
			"last_updated": updated,
		},
	}
}

func daySensor(in Input, updated string, weekday models.Weekday, day models.DayRecord) Sensor {
	attrs := recordAttributes(day)
	delete(attrs, "name")
	attrs["date"] = day.Date
	attrs["last_updated"] = updated

	return Sensor{
		ID:         id("day", in.Child) + "_" + string(weekday),
		Name:       name(in.Child, string(weekday)),
		State:      string(day.Name),
		Attributes: attrs,
	}
}

// recordAttributes flattens a day record using its persisted field names
func recordAttributes(day models.DayRecord) map[string]any {
	attrs := map[string]any{}
	data, err := json.Marshal(day)
	if err != nil {
		return attrs
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return map[string]any{}
	}
	return attrs
}

func weekSensor(in Input, updated, kind string, value func(models.DayRecord) any) Sensor {
	attrs := map[string]any{"last_updated": updated}
	for _, weekday := range models.SchoolDays {
		if day, ok := in.Days[weekday]; ok {
			attrs[string(weekday)] = value(day)
		} else {
			attrs[string(weekday)] = 0
		}
	}
	return Sensor{
		ID:         id(kind, in.Child),
		Name:       name(in.Child, strings.ReplaceAll(kind, "_", " ")),
		State:      updated[:10],
		Attributes: attrs,
	}
}

// RecentItem is the compact form of a feed entry in the newsfeed sensor
type RecentItem struct {
	Summary string `json:"summary"`
	Date    string `json:"date"`
}

func newsfeed(in Input, updated string) Sensor {
	s := Sensor{
		ID:         id("newsfeed", in.Child),
		Name:       name(in.Child, "newsfeed"),
		Attributes: map[string]any{"last_updated": updated},
	}
	if len(in.Newsfeed) == 0 {
		return s
	}

	s.State = truncateRunes(in.Newsfeed[0].Summary, stateLimit)
	s.Attributes["latest_date"] = in.Newsfeed[0].Date

	n := len(in.Newsfeed)
	if n > recentLimit {
		n = recentLimit
	}
	recent := make([]RecentItem, 0, n)
	for _, item := range in.Newsfeed[:n] {
		recent = append(recent, RecentItem{Summary: item.Summary, Date: item.Date})
	}
	s.Attributes["recent"] = recent
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
