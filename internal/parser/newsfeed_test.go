package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Kerhoff/KinderboT/internal/models"
)

func TestParseNewsfeedDropsGalleryByDefault(t *testing.T) {
	items := ParseNewsfeed([]byte(mockNewsfeedRaw), NewsfeedOptions{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	for _, item := range items {
		if item.ID == "37973" {
			t.Fatalf("gallery item should be filtered out")
		}
	}
}

func TestParseNewsfeedKeepsGalleryWhenConfigured(t *testing.T) {
	items := ParseNewsfeed([]byte(mockNewsfeedRaw), NewsfeedOptions{IncludeGallery: true})
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	gallery := items[1]
	if gallery.Kind != models.FeedKindGallery {
		t.Fatalf("source order not preserved: %+v", items)
	}
	if gallery.Summary != "Maria Pop: Carnival" {
		t.Errorf("gallery summary = %q", gallery.Summary)
	}
}

func TestParseNewsfeedInvoiceSummary(t *testing.T) {
	invoice := ParseNewsfeed([]byte(mockNewsfeedRaw), NewsfeedOptions{})[0]
	if invoice.ID != "37736" {
		t.Fatalf("id = %q", invoice.ID)
	}
	for _, want := range []string{"GH018654", "Due Date", "380 EUR"} {
		if !strings.Contains(invoice.Summary, want) {
			t.Errorf("summary %q missing %q", invoice.Summary, want)
		}
	}
	if invoice.Summary != "Invoice GH018654 — Due Date: 28.02.2026 — 380 EUR" {
		t.Errorf("summary = %q", invoice.Summary)
	}
	if invoice.Date != "20 February 2026 at 09:12" {
		t.Errorf("date = %q", invoice.Date)
	}
}

func TestParseNewsfeedInvoiceOmitsEmptyParts(t *testing.T) {
	raw := `{"result": {"feed": [{"id": 1, "type": "invoice", "content": {"title": "Invoice X1", "subtitle2": "10 EUR"}}]}}`
	items := ParseNewsfeed([]byte(raw), NewsfeedOptions{})
	if items[0].Summary != "Invoice X1 — 10 EUR" {
		t.Fatalf("summary = %q", items[0].Summary)
	}
}

func TestParseNewsfeedTextPost(t *testing.T) {
	post := ParseNewsfeed([]byte(mockNewsfeedRaw), NewsfeedOptions{})[1]
	if post.Author != "John Doe" {
		t.Errorf("author = %q", post.Author)
	}
	if post.Summary != "John Doe: Hello everyone, welcome!" {
		t.Errorf("summary = %q", post.Summary)
	}
}

func TestParseNewsfeedSummaryTruncation(t *testing.T) {
	long := strings.Repeat("a", 130)
	raw := `{"result": {"feed": [{"id": 1, "type": "text", "user": {"first_name": "Ana"}, "content": {"description": "` + long + `"}}]}}`
	item := ParseNewsfeed([]byte(raw), NewsfeedOptions{})[0]
	want := "Ana: " + strings.Repeat("a", 120) + "…"
	if item.Summary != want {
		t.Fatalf("summary = %q", item.Summary)
	}
}

func TestParseNewsfeedDescriptionLimit(t *testing.T) {
	long := strings.Repeat("ă", 600)
	raw := `{"result": {"feed": [{"id": 1, "type": "text", "content": {"title": "T", "description": "` + long + `"}}]}}`
	item := ParseNewsfeed([]byte(raw), NewsfeedOptions{})[0]
	if n := len([]rune(item.Description)); n != 500 {
		t.Fatalf("description has %d runes", n)
	}
}

func TestParseNewsfeedFallbackSummary(t *testing.T) {
	raw := `{"result": {"feed": [{"id": 1, "type": "text", "user": {"first_name": "Ana", "last_name": "Ionescu"}, "content": null}]}}`
	item := ParseNewsfeed([]byte(raw), NewsfeedOptions{})[0]
	if item.Summary != "New post from Ana Ionescu" {
		t.Fatalf("summary = %q", item.Summary)
	}
}

func TestParseNewsfeedHasNoMediaFields(t *testing.T) {
	items := ParseNewsfeed([]byte(mockNewsfeedRaw), NewsfeedOptions{IncludeGallery: true})
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, banned := range []string{"https://", "url", "latest_comment", "gallery\":"} {
		if strings.Contains(string(data), banned) {
			t.Errorf("serialized items contain %q: %s", banned, data)
		}
	}
}

func TestParseNewsfeedMalformed(t *testing.T) {
	for _, raw := range []string{``, `null`, `{}`, `{"code": ""}`, `{"result": {"feed": []}}`, `{"result": {"feed": "x"}}`} {
		if items := ParseNewsfeed([]byte(raw), NewsfeedOptions{}); len(items) != 0 {
			t.Errorf("%q: expected no items, got %+v", raw, items)
		}
	}
}

func TestParseNewsfeedKeepsLargeNumericIDs(t *testing.T) {
	raw := `{"result": {"feed": [
		{"id": 12345678901234567891, "type": "text", "content": {"title": "Trip"}},
		{"id": "abc", "type": "text", "content": {"title": "Party"}}
	]}}`

	items := ParseNewsfeed([]byte(raw), NewsfeedOptions{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "12345678901234567891" {
		t.Fatalf("numeric id lost precision: %q", items[0].ID)
	}
	if items[1].ID != "abc" {
		t.Fatalf("string id changed: %q", items[1].ID)
	}
}

func TestParseNewsfeedRejectsTrailingData(t *testing.T) {
	items := ParseNewsfeed([]byte(`{"result": {"feed": [{"id": 1, "type": "text"}]}} {}`), NewsfeedOptions{})
	if len(items) != 0 {
		t.Fatalf("expected no items for invalid JSON, got %+v", items)
	}
}
