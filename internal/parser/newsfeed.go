package parser

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/models"
)

const (
	descriptionLimit = 500
	summaryLimit     = 120
	summarySeparator = " — "
)

// NewsfeedOptions controls which feed entries are kept
type NewsfeedOptions struct {
	// IncludeGallery keeps pure photo gallery posts, summarized like text posts
	IncludeGallery bool
}

// ParseNewsfeed converts a newsfeed payload into text-only feed items in
// source order. Malformed payloads yield an empty list.
func ParseNewsfeed(raw []byte, opts NewsfeedOptions) (items []models.FeedItem) {
	items = []models.FeedItem{}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("parsed_items", len(items)).Errorf("Error parsing kinderpedia newsfeed: %v", r)
		}
	}()

	result := walk(decode(raw), "result")
	if result == nil {
		return items
	}

	for _, e := range list(result["feed"]) {
		entry := object(e)
		if entry == nil {
			continue
		}

		kind := models.FeedKind(textOr(entry["type"], models.Unknown))
		if kind == models.FeedKindGallery && !opts.IncludeGallery {
			continue
		}

		content := object(entry["content"])
		user := object(entry["user"])
		author := strings.TrimSpace(textOr(user["first_name"], "") + " " + textOr(user["last_name"], ""))
		title := textOr(content["title"], "")
		description, _ := truncate(textOr(content["description"], ""), descriptionLimit)

		items = append(items, models.FeedItem{
			ID:          identifier(entry["id"]),
			Kind:        kind,
			Author:      author,
			Title:       title,
			Description: description,
			Date:        textOr(entry["date_friendly"], ""),
			Summary:     summarize(kind, author, title, content),
		})
	}

	return items
}

// summarize builds the one-line rendering of a feed entry
func summarize(kind models.FeedKind, author, title string, content map[string]any) string {
	if kind == models.FeedKindInvoice {
		return joinNonEmpty(summarySeparator,
			title,
			textOr(content["subtitle1"], ""),
			textOr(content["subtitle2"], ""),
		)
	}

	if title != "" {
		return fmt.Sprintf("%s: %s", author, title)
	}
	if desc := textOr(content["description"], ""); desc != "" {
		short, cut := truncate(desc, summaryLimit)
		short = strings.TrimRight(short, " \t\r\n")
		if cut {
			short += "…"
		}
		return fmt.Sprintf("%s: %s", author, short)
	}
	return fmt.Sprintf("New post from %s", author)
}
