package parser

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/models"
)

var (
	napHoursPattern   = regexp.MustCompile(`\s*(\d+)\s*h\s*and\s*(\d+)\s*min`)
	napMinutesPattern = regexp.MustCompile(`\s*(\d+)\s*min`)
)

// mealCategory maps the service's meal type codes to categories
func mealCategory(code string) (models.MealCategory, bool) {
	switch code {
	case "md":
		return models.Breakfast, true
	case "mp", "mp2":
		return models.Lunch, true
	case "g":
		return models.Snack, true
	}
	return "", false
}

func isLunchCode(code string) bool {
	return code == "mp" || code == "mp2"
}

// ParseTimeline converts a weekly timeline payload into day records keyed by
// weekday. Only days present in the payload with a parseable date are
// returned; malformed payloads yield an empty week.
func ParseTimeline(raw []byte) (week models.Week) {
	week = make(models.Week)

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("parsed_days", len(week)).Errorf("Error parsing kinderpedia timeline: %v", r)
		}
	}()

	days := walk(decode(raw), "result", "dailytimeline", "days")
	if len(days) == 0 {
		return week
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, dateKey := range keys {
		date, err := time.Parse(models.DateLayout, dateKey)
		if err != nil {
			continue
		}
		weekday := models.WeekdayOf(date)
		week[weekday] = parseDay(weekday, dateKey, object(days[dateKey]))
	}

	return week
}

func parseDay(weekday models.Weekday, date string, day map[string]any) models.DayRecord {
	record := models.NewDayRecord(weekday, date)

	var lunchPercents []float64
	sawLunch := false

	for _, entry := range list(day["data"]) {
		item := object(entry)
		if item == nil {
			continue
		}
		id, _ := text(item["id"])

		switch {
		case id == "checkin":
			record.Checkin = textOr(item["subtitle"], models.Unknown)
			applyAbsence(&record, item)
		case id == "nap":
			record.Nap = textOr(item["subtitle"], models.Unknown)
			if record.Nap != models.Unknown {
				record.NapDuration = NapDuration(record.Nap)
			}
		case strings.HasPrefix(id, "food_"):
			meals := list(walk(item, "details", "food")["meals"])
			for _, m := range meals {
				meal := object(m)
				if meal == nil {
					continue
				}
				code, _ := text(meal["type"])
				category, ok := mealCategory(code)
				if !ok {
					continue
				}

				if menus := list(meal["menus"]); len(menus) > 0 {
					items := make([]string, 0, len(menus))
					for _, mn := range menus {
						items = append(items, textOr(object(mn)["name"], models.Unknown))
					}
					totals := object(meal["totals"])
					record.SetMealMenu(category, items, numberOr(totals["kcal"], 0), numberOr(totals["weight"], 0))
				}

				if isLunchCode(code) {
					sawLunch = true
					if p, ok := number(meal["percent"]); ok {
						lunchPercents = append(lunchPercents, p)
					}
					continue
				}
				record.SetMealPercent(category, numberOr(meal["percent"], 0))
			}
		}
	}

	if sawLunch {
		record.LunchPercent = mean1(lunchPercents)
	}

	return record
}

// applyAbsence copies an absence sub-structure from a check-in item. The
// service nests it either on the item or under its details.
func applyAbsence(record *models.DayRecord, item map[string]any) {
	absence := object(item["absence"])
	if absence == nil {
		absence = walk(item, "details", "absence")
	}
	if absence == nil {
		return
	}
	motivated := flag(absence["motivated"])
	record.Absent = true
	record.AbsenceReason = textOr(absence["reason"], "")
	record.AbsenceMotivated = &motivated
	record.AbsenceBy = textOr(absence["by"], "")
}

// NapDuration extracts the nap length in minutes from a nap description such
// as "12:39 - 14:09, 1 h and 30 min" or "45 min". Unrecognized text yields 0.
func NapDuration(nap string) int {
	if m := napHoursPattern.FindStringSubmatch(nap); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		return hours*60 + minutes
	}
	if m := napMinutesPattern.FindStringSubmatch(nap); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return minutes
	}
	return 0
}

// mean1 is the arithmetic mean rounded to one decimal, 0 for no values
func mean1(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}
