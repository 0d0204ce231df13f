// Package scheduler runs the periodic live anomaly check job.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/fetch"
	"github.com/cherrryana/temperature-monitor/internal/live"
)

// Scheduler periodically fetches live readings for the configured cities and
// evaluates them against their seasonal baselines.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   fetch.Fetcher
	checker   *live.Checker
	cities    []string
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Scheduler. interval is the job cadence; timeout bounds each run.
func New(fetcher fetch.Fetcher, checker *live.Checker, cities []string, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		checker:   checker,
		cities:    cities,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.logger.Warn("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		zap.Duration("interval", interval),
		zap.Int("cities", len(s.cities)),
		zap.String("fetch_strategy", s.fetcher.Name()))
	return nil
}

func (s *Scheduler) runOnce() {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results := s.fetcher.FetchAll(ctx, s.cities)
	checks := s.checker.EvaluateAll(results)

	var anomalies, unavailable int
	for _, c := range checks {
		if c.Err != nil {
			unavailable++
			continue
		}
		if c.Verdict.IsAnomaly {
			anomalies++
		}
	}
	s.logger.Info("live check run complete",
		zap.Int("cities", len(checks)),
		zap.Int("anomalies", anomalies),
		zap.Int("unavailable", unavailable))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
