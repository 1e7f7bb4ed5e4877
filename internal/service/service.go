package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Kerhoff/KinderboT/internal/history"
	"github.com/Kerhoff/KinderboT/internal/metrics"
	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/parser"
	"github.com/Kerhoff/KinderboT/internal/repository"
	"github.com/Kerhoff/KinderboT/pkg/logger"
)

// KinderpediaAPI is the subset of the Kinderpedia client the service needs.
type KinderpediaAPI interface {
	history.TimelineFetcher
	FetchChildren(ctx context.Context) ([]models.Child, error)
	FetchNewsfeed(ctx context.Context, childID, kindergartenID int64) (json.RawMessage, error)
}

// meteredFetcher counts timeline fetch errors under one operation label and
// remembers whether any call failed.
type meteredFetcher struct {
	api       history.TimelineFetcher
	metrics   *metrics.Metrics
	operation string
	failed    atomic.Bool
}

func (f *meteredFetcher) FetchTimeline(ctx context.Context, childID, kindergartenID int64, weekOffset int) (json.RawMessage, error) {
	raw, err := f.api.FetchTimeline(ctx, childID, kindergartenID, weekOffset)
	if err != nil {
		f.metrics.FetchError(f.operation)
		f.failed.Store(true)
	}
	return raw, err
}

func (s *Service) fetcher(operation string) *meteredFetcher {
	return &meteredFetcher{api: s.api, metrics: s.metrics, operation: operation}
}

// ChildData is everything known about one child after a refresh.
type ChildData struct {
	Child models.Child `json:"child"`
	// Days is the current week keyed by weekday
	Days models.Week `json:"days"`
	// History holds every archived day plus the current week keyed by date;
	// current week data wins over archived data for the same date
	History  map[string]models.DayRecord `json:"history"`
	Newsfeed []models.FeedItem           `json:"newsfeed"`
}

// Snapshot is the published result of the last successful refresh. It is
// replaced as a whole and never mutated after publication.
type Snapshot struct {
	Children    map[string]*ChildData `json:"children"`
	LastUpdated time.Time             `json:"last_updated"`
}

// Options tunes the service behaviour.
type Options struct {
	NewsfeedIncludeGallery bool
	BackfillDelay          time.Duration
	Location               *time.Location
}

// Service refreshes child data, owns the per-child history stores and
// drives backfill and weekly archive runs.
type Service struct {
	api     KinderpediaAPI
	repo    repository.HistoryRepository
	metrics *metrics.Metrics
	logger  *logrus.Logger
	opts    Options
	now     func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
	children []models.Child
	stores   map[string]*history.Store

	// one backfill and one archive in flight per child
	flight singleflight.Group
}

// New creates a new Service with all required dependencies.
func New(api KinderpediaAPI, repo repository.HistoryRepository, m *metrics.Metrics, logger *logrus.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		api:     api,
		repo:    repo,
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		stores:  make(map[string]*history.Store),
	}
}

// Location returns the time zone day dates are interpreted in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Now returns the current time in the service time zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.opts.Location)
}

// Snapshot returns the last published snapshot, or nil before the first
// successful refresh.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Child returns the data of one child from the last snapshot.
func (s *Service) Child(key string) (*ChildData, bool) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, false
	}
	data, ok := snap.Children[key]
	return data, ok
}

// Children returns the children of the last snapshot ordered by key.
func (s *Service) Children() []*ChildData {
	snap := s.Snapshot()
	if snap == nil {
		return nil
	}
	keys := make([]string, 0, len(snap.Children))
	for k := range snap.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*ChildData, 0, len(keys))
	for _, k := range keys {
		out = append(out, snap.Children[k])
	}
	return out
}

// HistoryWeeks returns the number of archived weeks per child key.
func (s *Service) HistoryWeeks() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.stores))
	for key, store := range s.stores {
		out[key] = len(store.Weeks())
	}
	return out
}

// store returns the loaded history store of a child, creating it on first use.
func (s *Service) store(ctx context.Context, key string) (*history.Store, error) {
	s.mu.Lock()
	st, ok := s.stores[key]
	if !ok {
		st = history.NewStore(s.repo, key, s.logger)
		s.stores[key] = st
	}
	s.mu.Unlock()

	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// Refresh fetches the child list, the current week and the newsfeed of every
// child and publishes a new snapshot. On failure the previous snapshot stays
// in place.
func (s *Service) Refresh(ctx context.Context) error {
	s.logger.Debug("Fetching data from Kinderpedia API")

	children, err := s.api.FetchChildren(ctx)
	if err != nil {
		s.metrics.FetchError("children")
		return s.refreshFailed(fmt.Errorf("failed to fetch children: %w", err))
	}

	snap := &Snapshot{
		Children:    make(map[string]*ChildData, len(children)),
		LastUpdated: s.now().UTC(),
	}
	for _, child := range children {
		data, err := s.fetchChild(ctx, child)
		if err != nil {
			return s.refreshFailed(err)
		}
		snap.Children[child.Key()] = data
	}

	s.mu.Lock()
	s.snapshot = snap
	s.children = children
	s.mu.Unlock()

	s.metrics.RefreshSucceeded(snap.LastUpdated, len(children))
	s.logger.Debugf("Kinderpedia data fetched for %d children", len(children))
	return nil
}

func (s *Service) refreshFailed(err error) error {
	s.metrics.RefreshFailed()
	s.logger.Errorf("Failed to refresh Kinderpedia data: %v", err)
	return err
}

func (s *Service) fetchChild(ctx context.Context, child models.Child) (*ChildData, error) {
	key := child.Key()

	store, err := s.store(ctx, key)
	if err != nil {
		return nil, err
	}

	timelineRaw, err := s.api.FetchTimeline(ctx, child.ChildID, child.KindergartenID, 0)
	if err != nil {
		s.metrics.FetchError("timeline")
		return nil, fmt.Errorf("failed to fetch timeline for %s: %w", key, err)
	}
	days := parser.ParseTimeline(timelineRaw)

	feedRaw, err := s.api.FetchNewsfeed(ctx, child.ChildID, child.KindergartenID)
	if err != nil {
		s.metrics.FetchError("newsfeed")
		return nil, fmt.Errorf("failed to fetch newsfeed for %s: %w", key, err)
	}
	feed := parser.ParseNewsfeed(feedRaw, parser.NewsfeedOptions{IncludeGallery: s.opts.NewsfeedIncludeGallery})

	merged := store.GetAllDays()
	for _, day := range days {
		if _, ok := day.KnownDate(); ok {
			merged[day.Date] = day
		}
	}

	return &ChildData{
		Child:    child,
		Days:     days,
		History:  merged,
		Newsfeed: feed,
	}, nil
}

// knownChildren returns the children of the last refresh, asking the API
// when no refresh has succeeded yet.
func (s *Service) knownChildren(ctx context.Context) ([]models.Child, error) {
	s.mu.RLock()
	children := s.children
	s.mu.RUnlock()
	if children != nil {
		return children, nil
	}

	children, err := s.api.FetchChildren(ctx)
	if err != nil {
		s.metrics.FetchError("children")
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}
	return children, nil
}

// BackfillAll backfills the history of every known child and returns the
// number of weeks stored. Per-child persistence errors are collected; a
// refresh follows when anything new was stored.
func (s *Service) BackfillAll(ctx context.Context, delay time.Duration) (int, error) {
	children, err := s.knownChildren(ctx)
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	total := 0
	for _, child := range children {
		n, err := s.backfillChild(ctx, child, delay)
		total += n
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("backfill %s: %w", child.Key(), err))
		}
	}

	if total > 0 {
		if err := s.Refresh(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return total, result.ErrorOrNil()
}

func (s *Service) backfillChild(ctx context.Context, child models.Child, delay time.Duration) (int, error) {
	key := child.Key()
	v, err, _ := s.flight.Do("backfill:"+key, func() (any, error) {
		store, err := s.store(ctx, key)
		if err != nil {
			return 0, err
		}

		done := s.metrics.BackfillStarted()
		defer done()

		n, err := store.Backfill(ctx, s.fetcher("backfill"), child.ChildID, child.KindergartenID, parser.ParseTimeline, delay)
		s.metrics.WeeksStored(key, "backfill", n)
		if n > 0 {
			logger.WithChild(s.logger, key).Infof("Backfilled %d weeks of history", n)
		}
		return n, err
	})
	n, _ := v.(int)
	return n, err
}

// StartBackfill runs BackfillAll once in the background with the configured
// delay between requests.
func (s *Service) StartBackfill(ctx context.Context) {
	go func() {
		n, err := s.BackfillAll(ctx, s.opts.BackfillDelay)
		if err != nil {
			s.logger.Errorf("History backfill failed: %v", err)
			return
		}
		s.logger.Infof("History backfill finished, %d new weeks", n)
	}()
}

// Resync re-runs the backfill for all known children and refreshes
// afterwards, whether or not new weeks were found.
func (s *Service) Resync(ctx context.Context) (int, error) {
	s.logger.Info("Manual resync requested")

	var result *multierror.Error
	n, err := s.BackfillAll(ctx, s.opts.BackfillDelay)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if n == 0 {
		if err := s.Refresh(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return n, result.ErrorOrNil()
}

var errLastWeekUnavailable = errors.New("last week could not be fetched")

// ArchiveAll stores last week for every known child and returns how many
// weeks were new. A refresh follows when anything was stored. A child whose
// last week could not be fetched fails the run.
func (s *Service) ArchiveAll(ctx context.Context) (int, error) {
	children, err := s.knownChildren(ctx)
	if err != nil {
		s.metrics.ArchiveRun(metrics.ResultFailure)
		return 0, err
	}

	var result *multierror.Error
	stored := 0
	for _, child := range children {
		key := child.Key()
		v, err, _ := s.flight.Do("archive:"+key, func() (any, error) {
			store, err := s.store(ctx, key)
			if err != nil {
				return false, err
			}
			api := s.fetcher("archive")
			ok, err := store.ArchiveLastWeek(ctx, api, child.ChildID, child.KindergartenID, parser.ParseTimeline)
			if err == nil && api.failed.Load() {
				err = errLastWeekUnavailable
			}
			return ok, err
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("archive %s: %w", key, err))
			continue
		}
		if ok, _ := v.(bool); ok {
			stored++
			s.metrics.WeeksStored(key, "archive", 1)
			logger.WithChild(s.logger, key).Info("Archived last week")
		}
	}

	if stored > 0 {
		if err := s.Refresh(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		s.metrics.ArchiveRun(metrics.ResultFailure)
		return stored, err
	}
	s.metrics.ArchiveRun(metrics.ResultSuccess)
	return stored, nil
}
