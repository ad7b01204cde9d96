// Package cron schedules recurring batch runs using robfig/cron.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler re-runs a batch job on a cron expression (watch mode).
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates a scheduler using the standard 5-field cron format.
func NewScheduler(logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	return &Scheduler{cron: c, logger: logger}
}

// Start registers the job on the given schedule and begins running it.
func (s *Scheduler) Start(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("watch schedule started", slog.String("schedule", spec))
	return nil
}

// Stop gracefully stops the schedule; the returned context is done once any
// running job completes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("watch schedule stopping")
	return s.cron.Stop()
}
