package scheduler

import (
	"time"

	"gearshare-backend/internal/jobs"
	"gearshare-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	registrations := []struct {
		name string
		spec string
		run  func()
	}{
		{"ExpirePendingRequests", cfg.ExpirePendingRequests, s.jobs.ExpirePendingRequests},
		{"CancelAbandonedHolds", cfg.CancelAbandonedHolds, s.jobs.CancelAbandonedHolds},
		{"RetryPendingPayouts", cfg.RetryPendingPayouts, s.jobs.RetryPendingPayouts},
	}
	for _, r := range registrations {
		if _, err := s.cron.AddFunc(r.spec, r.run); err != nil {
			logger.Error("Failed to register job", "job", r.name, "spec", r.spec, "error", err)
			return err
		}
	}

	logger.Info("All cron jobs registered successfully", "count", len(registrations))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
