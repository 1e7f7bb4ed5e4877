package models

// FeedKind is the newsfeed entry type reported by the service
type FeedKind string

const (
	FeedKindGallery FeedKind = "gallery"
	FeedKindInvoice FeedKind = "invoice"
	FeedKindText    FeedKind = "text"
)

// FeedItem is a flat, text-only rendering of one newsfeed entry
type FeedItem struct {
	ID          string   `json:"id"`
	Kind        FeedKind `json:"kind"`
	Author      string   `json:"author"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Summary     string   `json:"summary"`
}
