package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/repository"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Load(ctx context.Context, key string) (*models.HistoryDocument, error) {
	query := `
		SELECT data
		FROM history_stores
		WHERE child_key = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load history for %s: %w", key, err)
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

func (r *historyRepository) Save(ctx context.Context, key string, doc *models.HistoryDocument) error {
	query := `
		INSERT INTO history_stores (child_key, version, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (child_key)
		DO UPDATE SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode history for %s: %w", key, err)
	}

	if _, err := r.db.ExecContext(ctx, query, key, repository.HistoryVersion, data, time.Now()); err != nil {
		return fmt.Errorf("failed to save history for %s: %w", key, err)
	}

	return nil
}
