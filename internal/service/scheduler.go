package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRefreshInterval is how often the current week and newsfeed are polled.
const DefaultRefreshInterval = 15 * time.Minute

// DefaultArchiveSchedule runs the weekly archive on Monday at 00:30, right
// after the previous week closes.
const DefaultArchiveSchedule = "30 0 * * 1"

// StartRefreshScheduler runs a background loop that refreshes child data
// every interval. It blocks until the context is cancelled, so it should be
// launched in a separate goroutine.
func (s *Service) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Infof("Refresh scheduler started (every %s)", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Refresh scheduler stopped")
			return
		case <-ticker.C:
			// errors are logged and counted by Refresh
			_ = s.Refresh(ctx)
		}
	}
}

// ParseArchiveSchedule validates a standard five field cron expression.
func ParseArchiveSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", spec, err)
	}
	return sched, nil
}

// StartArchiveScheduler runs ArchiveAll on the given cron schedule in the
// service time zone. It blocks until the context is cancelled and waits for
// a running archive to finish before returning. notify, when set, receives a
// short message after a run that stored new weeks.
func (s *Service) StartArchiveScheduler(ctx context.Context, spec string, notify func(text string)) error {
	if spec == "" {
		spec = DefaultArchiveSchedule
	}
	sched, err := ParseArchiveSchedule(spec)
	if err != nil {
		return err
	}

	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cron.PrintfLogger(s.logger)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))),
	)
	c.Schedule(sched, cron.FuncJob(func() {
		stored, err := s.ArchiveAll(ctx)
		if err != nil {
			s.logger.Errorf("Weekly archive failed: %v", err)
			return
		}
		s.logger.Infof("Weekly archive finished, %d new weeks", stored)
		if stored > 0 && notify != nil {
			notify(fmt.Sprintf("🗂 Archived last week for %d children.", stored))
		}
	}))

	c.Start()
	s.logger.Infof("Archive scheduler started (%s, next run %s)", spec, sched.Next(s.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Archive scheduler stopped")
	return nil
}
