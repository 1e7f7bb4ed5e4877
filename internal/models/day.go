package models

import "time"

// Unknown is the sentinel used for text fields the service did not report
const Unknown = "unknown"

// DateLayout is the ISO calendar date layout used for day and week keys
const DateLayout = "2006-01-02"

// Weekday is the lowercase English name of a day of the week
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists the days of the week starting on Monday
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// SchoolDays lists Monday to Friday
var SchoolDays = Weekdays[:5]

// WeekdayOf returns the weekday name of a calendar date
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday counts from Sunday
	return Weekdays[(int(t.Weekday())+6)%7]
}

// MondayOf returns the Monday of the ISO week containing t
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// MealCategory is one of the meal groups reported for a day
type MealCategory string

const (
	Breakfast MealCategory = "breakfast"
	Lunch     MealCategory = "lunch"
	Snack     MealCategory = "snack"
)

// MealCategories lists the categories in the order they are served
var MealCategories = []MealCategory{Breakfast, Lunch, Snack}

// MealSummary is the per-category view of a day's food data
type MealSummary struct {
	Items   []string `json:"items"`
	Kcal    float64  `json:"kcal"`
	Weight  float64  `json:"weight"`
	Percent float64  `json:"percent"`
}

// DayRecord is one child's attendance, nap and meal data for one calendar day.
// The JSON layout is also the persisted layout, so field names must not change.
type DayRecord struct {
	Name    Weekday `json:"name"`
	Date    string  `json:"date"`
	Checkin string  `json:"checkin"`

	Absent           bool   `json:"absent,omitempty"`
	AbsenceReason    string `json:"absence_reason,omitempty"`
	AbsenceMotivated *bool  `json:"absence_motivated,omitempty"`
	AbsenceBy        string `json:"absence_by,omitempty"`

	Nap         string `json:"nap"`
	NapDuration int    `json:"nap_duration"`

	BreakfastItems   []string `json:"breakfast_items,omitempty"`
	BreakfastKcal    float64  `json:"breakfast_kcal"`
	BreakfastWeight  float64  `json:"breakfast_weight"`
	BreakfastPercent float64  `json:"breakfast_percent"`

	LunchItems   []string `json:"lunch_items,omitempty"`
	LunchKcal    float64  `json:"lunch_kcal"`
	LunchWeight  float64  `json:"lunch_weight"`
	LunchPercent float64  `json:"lunch_percent"`

	SnackItems   []string `json:"snack_items,omitempty"`
	SnackKcal    float64  `json:"snack_kcal"`
	SnackWeight  float64  `json:"snack_weight"`
	SnackPercent float64  `json:"snack_percent"`
}

// NewDayRecord returns a record with every field at its sentinel value
func NewDayRecord(weekday Weekday, date string) DayRecord {
	if date == "" {
		date = Unknown
	}
	return DayRecord{
		Name:    weekday,
		Date:    date,
		Checkin: Unknown,
		Nap:     Unknown,
	}
}

// HasRealData reports whether the day carries a known check-in or any food
func (d DayRecord) HasRealData() bool {
	if d.Checkin != "" && d.Checkin != Unknown {
		return true
	}
	return len(d.BreakfastItems) > 0 || len(d.LunchItems) > 0 || len(d.SnackItems) > 0
}

// KnownDate parses the record date, returning false for the unknown sentinel
func (d DayRecord) KnownDate() (time.Time, bool) {
	if d.Date == "" || d.Date == Unknown {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Meal returns the summary for one meal category
func (d DayRecord) Meal(category MealCategory) MealSummary {
	switch category {
	case Breakfast:
		return MealSummary{Items: d.BreakfastItems, Kcal: d.BreakfastKcal, Weight: d.BreakfastWeight, Percent: d.BreakfastPercent}
	case Lunch:
		return MealSummary{Items: d.LunchItems, Kcal: d.LunchKcal, Weight: d.LunchWeight, Percent: d.LunchPercent}
	case Snack:
		return MealSummary{Items: d.SnackItems, Kcal: d.SnackKcal, Weight: d.SnackWeight, Percent: d.SnackPercent}
	}
	return MealSummary{}
}

// SetMealMenu stores the menu items and totals of one category
func (d *DayRecord) SetMealMenu(category MealCategory, items []string, kcal, weight float64) {
	switch category {
	case Breakfast:
		d.BreakfastItems, d.BreakfastKcal, d.BreakfastWeight = items, kcal, weight
	case Lunch:
		d.LunchItems, d.LunchKcal, d.LunchWeight = items, kcal, weight
	case Snack:
		d.SnackItems, d.SnackKcal, d.SnackWeight = items, kcal, weight
	}
}

// SetMealPercent stores how much of one category was eaten
func (d *DayRecord) SetMealPercent(category MealCategory, percent float64) {
	switch category {
	case Breakfast:
		d.BreakfastPercent = percent
	case Lunch:
		d.LunchPercent = percent
	case Snack:
		d.SnackPercent = percent
	}
}

// Week maps weekday names to day records for one ISO week
type Week map[Weekday]DayRecord

// HasRealData reports whether any day of the week carries real data
func (w Week) HasRealData() bool {
	for _, d := range w {
		if d.HasRealData() {
			return true
		}
	}
	return false
}

// Monday derives the week's Monday from the earliest known date among its days
func (w Week) Monday() (string, bool) {
	var earliest time.Time
	found := false
	for _, d := range w {
		t, ok := d.KnownDate()
		if !ok {
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	if !found {
		return "", false
	}
	return MondayOf(earliest).Format(DateLayout), true
}

// HistoryDocument is the persisted history of one child, keyed by Monday date
type HistoryDocument struct {
	Weeks map[string]Week `json:"weeks"`
}
