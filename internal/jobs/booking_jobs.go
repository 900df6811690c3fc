package jobs

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
)

// ExpirePendingRequests cancels requests the owner never answered
func (jr *JobRunner) ExpirePendingRequests() {
	jr.runWithRecovery("ExpirePendingRequests", func() {
		ctx := context.Background()
		cutoff := jr.now().Add(-time.Duration(jr.config.Jobs.PendingRequestTTLHours) * time.Hour)

		stale, err := jr.bookingRepo.ListStale(ctx, domain.BookingStatusPending, cutoff, jr.config.Jobs.BatchSize)
		if err != nil {
			logger.Error("Failed to list stale requests", "error", err)
			return
		}

		count := 0
		for i := range stale {
			res, err := jr.services.Bookings.ApplyTransition(ctx, &stale[i], domain.BookingStatusCancelled, domain.ActorSystem, "request expired")
			if err != nil {
				logger.Warn("Failed to expire request", "bookingID", stale[i].ID, "error", err)
				continue
			}
			if res.Applied {
				count++
			}
		}
		logger.Info("Expired pending requests", "count", count, "scanned", len(stale))
	})
}

// CancelAbandonedHolds settles approved bookings the renter never finished paying for.
// A hold the renter actually completed is reconciled to paid instead, covering a lost webhook.
func (jr *JobRunner) CancelAbandonedHolds() {
	jr.runWithRecovery("CancelAbandonedHolds", func() {
		ctx := context.Background()
		cutoff := jr.now().Add(-time.Duration(jr.config.Jobs.AbandonedHoldTTLHours) * time.Hour)

		stale, err := jr.bookingRepo.ListStale(ctx, domain.BookingStatusApproved, cutoff, jr.config.Jobs.BatchSize)
		if err != nil {
			logger.Error("Failed to list abandoned bookings", "error", err)
			return
		}

		cancelled, recovered := 0, 0
		for i := range stale {
			b := &stale[i]
			if b.PaymentIntentID != "" {
				hold, err := jr.services.Processor.GetHold(ctx, b.PaymentIntentID)
				if err != nil {
					logger.Warn("Failed to read hold, retrying next run", "bookingID", b.ID, "holdID", b.PaymentIntentID, "error", err)
					continue
				}
				if hold.Status.Secured() {
					if jr.recoverPayment(ctx, b) {
						recovered++
					}
					continue
				}
			}

			res, err := jr.services.Bookings.ApplyTransition(ctx, b, domain.BookingStatusCancelled, domain.ActorSystem, "payment not completed in time")
			if err != nil {
				logger.Warn("Failed to cancel abandoned booking", "bookingID", b.ID, "error", err)
				continue
			}
			if !res.Applied {
				continue
			}
			cancelled++
			if b.PaymentIntentID != "" {
				if err := jr.services.Processor.CancelHold(ctx, b.PaymentIntentID); err != nil {
					logger.Anomaly("hold_cancel_failed", "bookingID", b.ID, "holdID", b.PaymentIntentID, "error", err)
				}
			}
		}
		logger.Info("Settled abandoned bookings", "cancelled", cancelled, "recovered", recovered, "scanned", len(stale))
	})
}

func (jr *JobRunner) recoverPayment(ctx context.Context, b *domain.Booking) bool {
	logger.Anomaly("hold_succeeded_without_event", "bookingID", b.ID, "holdID", b.PaymentIntentID)
	res, err := jr.services.Bookings.ApplyTransition(ctx, b, domain.BookingStatusPaid, domain.ActorSystem, "payment succeeded")
	if err != nil {
		logger.Warn("Failed to mark recovered booking paid", "bookingID", b.ID, "error", err)
		return false
	}
	if !res.Applied {
		return false
	}
	if _, err := jr.services.Payments.ReleasePayout(ctx, res.Booking); err != nil {
		logger.Warn("Payout failed, retry job will pick it up", "bookingID", b.ID, "error", err)
	}
	return true
}

// RetryPendingPayouts releases payouts for paid bookings whose transfer was never recorded
func (jr *JobRunner) RetryPendingPayouts() {
	jr.runWithRecovery("RetryPendingPayouts", func() {
		ctx := context.Background()
		cutoff := jr.now().Add(-time.Duration(jr.config.Jobs.PayoutRetryDelayMinutes) * time.Minute)

		waiting, err := jr.bookingRepo.ListAwaitingPayout(ctx, cutoff, jr.config.Jobs.BatchSize)
		if err != nil {
			logger.Error("Failed to list bookings awaiting payout", "error", err)
			return
		}

		count := 0
		for i := range waiting {
			transferID, err := jr.services.Payments.ReleasePayout(ctx, &waiting[i])
			if err != nil {
				logger.Warn("Payout retry failed", "bookingID", waiting[i].ID, "error", err)
				continue
			}
			logger.Debug("Payout released", "bookingID", waiting[i].ID, "transferID", transferID)
			count++
		}
		logger.Info("Retried pending payouts", "released", count, "scanned", len(waiting))
	})
}
