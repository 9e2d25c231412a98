package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"RealEstateCrawler/internal/ports"
)

// Scheduler wires the cron driver with the crawl pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	// runs never overlap; a trigger that fires mid-run is dropped
	running sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring crawls.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if !s.running.TryLock() {
			s.logger.Warn("previous crawl still running, trigger dropped", "trigger", trigger)
			return
		}
		defer s.running.Unlock()

		report, err := s.pipeline.Run(ctx, trigger)
		if err != nil {
			s.logger.Error("scheduled crawl failed", "error", err)
			return
		}
		s.logger.Info("scheduled crawl done", "inserted", report.Inserted, "duplicates", report.Duplicates)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
