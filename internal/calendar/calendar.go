// Package calendar turns day records into school and nap events.
package calendar

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Kerhoff/KinderboT/internal/models"
)

const (
	SummarySchool = "School"
	SummaryNap    = "Nap"
)

var (
	checkinTimePattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})`)
	napRangePattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)

	// school events without a check-in time run over the usual opening hours
	defaultStart = clock{8, 0}
	schoolEnd    = clock{18, 0}

	mealIcons = map[models.MealCategory]string{
		models.Breakfast: "🥣",
		models.Lunch:     "🍽️",
		models.Snack:     "🍪",
	}
)

// Event is a timed calendar entry
type Event struct {
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
}

type clock struct {
	hour, minute int
}

func (c clock) on(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.hour, c.minute, 0, 0, loc)
}

func parseClock(h, m string) (clock, bool) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour > 23 {
		return clock{}, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute > 59 {
		return clock{}, false
	}
	return clock{hour, minute}, true
}

// ParseCheckinTime extracts the leading HH:MM of a check-in text such as
// "08:15 - 16:30" or "07:40 - by Alina". It returns the hour and minute.
func ParseCheckinTime(text string) (hour, minute int, ok bool) {
	m := checkinTimePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	c, ok := parseClock(m[1], m[2])
	return c.hour, c.minute, ok
}

// napRange extracts both ends of a "HH:MM - HH:MM" nap text
func napRange(text string) (start, end clock, ok bool) {
	m := napRangePattern.FindStringSubmatch(text)
	if m == nil {
		return clock{}, clock{}, false
	}
	start, okStart := parseClock(m[1], m[2])
	end, okEnd := parseClock(m[3], m[4])
	return start, end, okStart && okEnd
}

// BuildEvents creates a School event for every dated, non-absent day with
// real data and a Nap event when the nap text holds a complete time range.
// Events are ordered by start time.
func BuildEvents(days map[string]models.DayRecord, loc *time.Location) []Event {
	if loc == nil {
		loc = time.Local
	}

	events := make([]Event, 0, len(days))
	for _, day := range days {
		date, ok := day.KnownDate()
		if !ok || day.Absent {
			continue
		}

		if day.HasRealData() {
			start := defaultStart
			if h, m, ok := ParseCheckinTime(day.Checkin); ok {
				start = clock{h, m}
			}
			events = append(events, Event{
				Summary:     SummarySchool,
				Start:       start.on(date, loc),
				End:         schoolEnd.on(date, loc),
				Description: describeMeals(day),
				Date:        day.Date,
			})
		}

		if from, to, ok := napRange(day.Nap); ok {
			events = append(events, Event{
				Summary: SummaryNap,
				Start:   from.on(date, loc),
				End:     to.on(date, loc),
				Date:    day.Date,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].Summary > events[j].Summary
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func describeMeals(day models.DayRecord) string {
	var lines []string
	for _, category := range models.MealCategories {
		meal := day.Meal(category)
		if len(meal.Items) == 0 {
			continue
		}
		line := fmt.Sprintf("%s %s: %s", mealIcons[category], mealTitle(category), strings.Join(meal.Items, ", "))
		if meal.Percent != 0 {
			line += fmt.Sprintf(" (%s%%)", strconv.FormatFloat(meal.Percent, 'f', -1, 64))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func mealTitle(category models.MealCategory) string {
	s := string(category)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Events returns the events overlapping [start, end)
func Events(days map[string]models.DayRecord, loc *time.Location, start, end time.Time) []Event {
	var out []Event
	for _, ev := range BuildEvents(days, loc) {
		if ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	return out
}

// Current returns the School event on now's date, or nil
func Current(days map[string]models.DayRecord, loc *time.Location, now time.Time) *Event {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(models.DateLayout)
	for _, ev := range BuildEvents(days, loc) {
		if ev.Summary == SummarySchool && ev.Date == today {
			return &ev
		}
	}
	return nil
}

// LatestDay returns today's record when it carries real data, otherwise the
// most recent earlier day that does. It returns nil when there is none.
func LatestDay(days map[string]models.DayRecord, today string) *models.DayRecord {
	if day, ok := days[today]; ok && day.HasRealData() {
		return &day
	}

	var latest *models.DayRecord
	for date, day := range days {
		if date > today || !day.HasRealData() {
			continue
		}
		if _, ok := day.KnownDate(); !ok {
			continue
		}
		if latest == nil || date > latest.Date {
			d := day
			latest = &d
		}
	}
	return latest
}
