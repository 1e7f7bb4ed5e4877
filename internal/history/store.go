// Package history keeps the archive of completed weeks for one child.
//
// Past weeks never change upstream, so each week is fetched once, stored
// under its Monday date and persisted immediately. Two operations add weeks:
//
//   - Backfill walks backwards from last week until it reaches a week that is
//     already stored, an empty week, or an API failure. It is throttled by a
//     delay between requests and resumes where it left off after a restart.
//   - ArchiveLastWeek stores just the previous week and is meant to run once
//     a week, shortly after the week closes.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/repository"
)

// DefaultBackfillDelay is the pause between API requests during backfill
const DefaultBackfillDelay = 5 * time.Second

//go:generate mockgen -source=store.go -destination=mock_fetcher_test.go -package=history

// TimelineFetcher fetches the raw weekly timeline of a child. weekOffset is
// relative to the current week: 0 is this week, -1 last week.
type TimelineFetcher interface {
	FetchTimeline(ctx context.Context, childID, kindergartenID int64, weekOffset int) (json.RawMessage, error)
}

// ParseFunc normalizes a raw timeline payload into a week of day records
type ParseFunc func(raw []byte) models.Week

// Store is the persistent week archive of one child+kindergarten pair.
// Concurrent backfills for the same store are not supported; callers run at
// most one at a time.
type Store struct {
	repo   repository.HistoryRepository
	key    string
	logger *logrus.Logger

	mu     sync.RWMutex
	weeks  map[string]models.Week
	loaded bool
}

// NewStore creates an empty, unloaded store for the given child key
func NewStore(repo repository.HistoryRepository, key string, logger *logrus.Logger) *Store {
	return &Store{
		repo:   repo,
		key:    key,
		logger: logger,
		weeks:  make(map[string]models.Week),
	}
}

// Key returns the child+kindergarten key the store belongs to
func (s *Store) Key() string {
	return s.key
}

// Load reads the stored weeks. Calling it again after a successful load is a
// no-op.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	doc, err := s.repo.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to load history %s: %w", s.key, err)
	}
	if doc != nil && doc.Weeks != nil {
		s.weeks = doc.Weeks
	}
	s.loaded = true

	s.logger.Debugf("History %s: loaded %d weeks", s.key, len(s.weeks))
	return nil
}

// Save persists every stored week
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	doc := &models.HistoryDocument{Weeks: s.weeks}
	err := s.repo.Save(ctx, s.key, doc)
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to save history %s: %w", s.key, err)
	}
	return nil
}

// Weeks returns a copy of the stored weeks keyed by Monday date
func (s *Store) Weeks() map[string]models.Week {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Week, len(s.weeks))
	for monday, week := range s.weeks {
		out[monday] = week
	}
	return out
}

// GetAllDays flattens every stored week into a date-keyed view
func (s *Store) GetAllDays() map[string]models.DayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make(map[string]models.DayRecord)
	for _, week := range s.weeks {
		for _, day := range week {
			if day.Date == "" || day.Date == models.Unknown {
				continue
			}
			days[day.Date] = day
		}
	}
	return days
}

// HasWeek reports whether the week starting on monday is stored
func (s *Store) HasWeek(monday string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.weeks[monday]
	return ok
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// add stores a week and persists it right away, so a crash loses at most the
// week in flight
func (s *Store) add(ctx context.Context, monday string, week models.Week) error {
	s.mu.Lock()
	s.weeks[monday] = week
	s.mu.Unlock()

	return s.Save(ctx)
}

// Backfill walks backwards one week at a time starting with last week and
// stores every week not yet archived. It stops at the first API error, empty
// or undatable week, already stored week, or week without real activity.
// It returns the number of newly stored weeks; the error is non-nil only
// when loading or saving the archive fails.
func (s *Store) Backfill(ctx context.Context, api TimelineFetcher, childID, kgID int64, parse ParseFunc, delay time.Duration) (int, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	log := s.logger.WithFields(logrus.Fields{"child_id": childID, "kindergarten_id": kgID})
	stored := 0

	for offset := -1; ; offset-- {
		log.Debugf("Backfill: fetching week offset %d", offset)

		raw, err := api.FetchTimeline(ctx, childID, kgID, offset)
		if err != nil {
			log.WithError(err).Warnf("Backfill: API error at week offset %d, stopping", offset)
			break
		}

		week := parse(raw)
		if len(week) == 0 {
			log.Debugf("Backfill: no parseable days at offset %d, stopping", offset)
			break
		}

		monday, ok := week.Monday()
		if !ok {
			log.Debugf("Backfill: could not determine monday at offset %d, stopping", offset)
			break
		}

		if s.HasWeek(monday) {
			log.Debugf("Backfill: week %s already stored, caught up", monday)
			break
		}

		if !week.HasRealData() {
			log.Debugf("Backfill: week %s has no real data (enrollment start?), stopping", monday)
			break
		}

		if err := s.add(ctx, monday, week); err != nil {
			return stored, err
		}
		stored++
		log.Debugf("Backfill: stored week %s (offset %d, total %d)", monday, offset, stored)

		if delay > 0 {
			if !sleep(ctx, delay) {
				log.Debug("Backfill: cancelled while waiting, stopping")
				break
			}
		}
	}

	log.Debugf("Backfill complete for %s: %d new weeks stored", s.key, stored)
	return stored, nil
}

// ArchiveLastWeek fetches and stores the previous week only. It reports
// whether a new week was stored; the error is non-nil only when loading or
// saving the archive fails.
func (s *Store) ArchiveLastWeek(ctx context.Context, api TimelineFetcher, childID, kgID int64, parse ParseFunc) (bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	log := s.logger.WithFields(logrus.Fields{"child_id": childID, "kindergarten_id": kgID})

	raw, err := api.FetchTimeline(ctx, childID, kgID, -1)
	if err != nil {
		log.WithError(err).Warn("Weekly archive: API error fetching last week")
		return false, nil
	}

	week := parse(raw)
	if len(week) == 0 {
		log.Debug("Weekly archive: no parseable days for last week")
		return false, nil
	}

	monday, ok := week.Monday()
	if !ok {
		log.Debug("Weekly archive: could not determine monday of last week")
		return false, nil
	}

	if s.HasWeek(monday) {
		log.Debugf("Weekly archive: week %s already stored", monday)
		return false, nil
	}

	if err := s.add(ctx, monday, week); err != nil {
		return false, err
	}

	log.Debugf("Weekly archive: stored week %s", monday)
	return true, nil
}

// sleep waits for d or until ctx is done, reporting whether the full delay
// elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
