package usecase

import (
	"context"
	"log/slog"
	"time"

	"CourtMonitor/internal/ports"
)

// Scheduler wires the timer driver with the change detector.
type Scheduler struct {
	driver   ports.Scheduler
	detector *ChangeDetector
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring subscription checks.
func NewScheduler(driver ports.Scheduler, detector *ChangeDetector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, detector: detector, logger: logger}
}

// Start registers the detector tick with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.detector == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("subscription check triggered", "at", trigger.Format(time.RFC3339))
		if _, err := s.detector.Tick(ctx); err != nil {
			s.logger.Error("subscription check", "error", err)
		}
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
