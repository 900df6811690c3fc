package jobs

import (
	"time"

	"gearshare-backend/internal/config"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository"
	"gearshare-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	bookingRepo repository.BookingRepository
	services    *Services
	config      *config.Config
	now         func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Bookings  service.BookingService
	Payments  service.PaymentService
	Processor processor.Processor
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(bookingRepo repository.BookingRepository, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		bookingRepo: bookingRepo,
		services:    services,
		config:      cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every booking job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpirePendingRequests()
	jr.CancelAbandonedHolds()
	jr.RetryPendingPayouts()
}
