package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/KinderboT/internal/models"
)

// maxNewsItems caps the /news reply
const maxNewsItems = 5

var mealIcons = map[models.MealCategory]string{
	models.Breakfast: "🥣",
	models.Lunch:     "🍽️",
	models.Snack:     "🍪",
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FormatDay renders one day of one child
func FormatDay(child models.Child, day *models.DayRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👶 *%s*\n", escape(child.FullName()))

	if day == nil {
		b.WriteString("No data yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "📅 %s, %s\n", title(string(day.Name)), day.Date)
	if day.Absent {
		reason := day.AbsenceReason
		if reason == "" {
			reason = "no reason given"
		}
		fmt.Fprintf(&b, "🚫 Absent (%s)\n", escape(reason))
		return b.String()
	}

	if day.Checkin != "" && day.Checkin != models.Unknown {
		fmt.Fprintf(&b, "🏫 %s\n", escape(day.Checkin))
	}
	if day.Nap != "" && day.Nap != models.Unknown {
		fmt.Fprintf(&b, "😴 %s\n", escape(day.Nap))
	}
	for _, category := range models.MealCategories {
		meal := day.Meal(category)
		if len(meal.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s", mealIcons[category], title(string(category)), escape(strings.Join(meal.Items, ", ")))
		if meal.Percent > 0 {
			fmt.Fprintf(&b, " (%.0f%%)", meal.Percent)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatWeek renders the school days of the current week as one line each
func FormatWeek(child models.Child, week models.Week) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👶 *%s*\n", escape(child.FullName()))

	for _, weekday := range models.SchoolDays {
		day, ok := week[weekday]
		if !ok {
			fmt.Fprintf(&b, "• %s: -\n", title(string(weekday)))
			continue
		}
		var parts []string
		switch {
		case day.Absent:
			parts = append(parts, "absent")
		case day.Checkin != "" && day.Checkin != models.Unknown:
			parts = append(parts, escape(day.Checkin))
		default:
			parts = append(parts, "-")
		}
		if day.NapDuration > 0 {
			parts = append(parts, fmt.Sprintf("nap %d min", day.NapDuration))
		}
		if day.LunchPercent > 0 {
			parts = append(parts, fmt.Sprintf("lunch %.0f%%", day.LunchPercent))
		}
		fmt.Fprintf(&b, "• %s: %s\n", title(string(weekday)), strings.Join(parts, ", "))
	}
	return b.String()
}

// FormatNews renders the newest feed items of one child
func FormatNews(child models.Child, feed []models.FeedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *%s*\n", escape(child.FullName()))

	if len(feed) == 0 {
		b.WriteString("No news.\n")
		return b.String()
	}
	for i, item := range feed {
		if i == maxNewsItems {
			break
		}
		if item.Date != "" {
			fmt.Fprintf(&b, "• %s _(%s)_\n", escape(item.Summary), escape(item.Date))
			continue
		}
		fmt.Fprintf(&b, "• %s\n", escape(item.Summary))
	}
	return b.String()
}
