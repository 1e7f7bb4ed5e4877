// Package file stores history documents as JSON files, one per child key.
// It is used when no database is configured.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/repository"
)

const filePrefix = "kinderpedia_history_"

type historyRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewHistoryRepository creates a file-backed history repository rooted at dir
func NewHistoryRepository(dir string) (repository.HistoryRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history dir %s: %w", dir, err)
	}
	return &historyRepository{dir: dir}, nil
}

func (r *historyRepository) path(key string) string {
	return filepath.Join(r.dir, filePrefix+filepath.Base(key)+".json")
}

func (r *historyRepository) Load(ctx context.Context, key string) (*models.HistoryDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history for %s: %w", key, err)
	}

	doc := &models.HistoryDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", key, err)
	}
	if doc.Weeks == nil {
		doc.Weeks = make(map[string]models.Week)
	}

	return doc, nil
}

// Save writes to a temporary file and renames it over the old one, so a crash
// mid-write leaves the previous document intact
func (r *historyRepository) Save(ctx context.Context, key string, doc *models.HistoryDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history for %s: %w", key, err)
	}

	target := r.path(key)
	tmp, err := os.CreateTemp(r.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history for %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace history for %s: %w", key, err)
	}

	return nil
}
