package repository

import (
	"context"

	"github.com/Kerhoff/KinderboT/internal/models"
)

// HistoryRepository defines durable storage for per-child history documents.
// Each child+kindergarten key owns exactly one document.
type HistoryRepository interface {
	// Load returns the stored document, or nil when the key has never been saved
	Load(ctx context.Context, key string) (*models.HistoryDocument, error)
	// Save replaces the stored document for key
	Save(ctx context.Context, key string, doc *models.HistoryDocument) error
}

// HistoryVersion is the layout version written alongside every document
const HistoryVersion = 1
