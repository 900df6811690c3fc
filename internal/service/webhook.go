package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository"
)

// RetryableError marks a webhook delivery that failed for a transient reason. The
// processor redelivers it when the endpoint answers with a server error.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

type webhookService struct {
	verifier     processor.EventVerifier
	bookingRepo  repository.BookingRepository
	deliveryRepo repository.WebhookDeliveryRepository
	bookings     BookingService
	payments     PaymentService
	now          func() time.Time
}

func NewWebhookService(
	verifier processor.EventVerifier,
	bookingRepo repository.BookingRepository,
	deliveryRepo repository.WebhookDeliveryRepository,
	bookings BookingService,
	payments PaymentService,
) WebhookService {
	return &webhookService{
		verifier:     verifier,
		bookingRepo:  bookingRepo,
		deliveryRepo: deliveryRepo,
		bookings:     bookings,
		payments:     payments,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HandleEvent verifies and reconciles one delivery. A nil error means the delivery must be
// acknowledged, whatever the outcome; a RetryableError asks the processor to redeliver.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (domain.WebhookOutcome, error) {
	event, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		if errors.Is(err, processor.ErrMalformedEvent) {
			logger.Anomaly("malformed_event", "error", err)
			return domain.WebhookOutcomeIgnored, nil
		}
		logger.Warn("Rejected webhook delivery", "error", err)
		return domain.WebhookOutcomeRejected, err
	}

	outcome, detail, err := s.reconcile(ctx, event)
	logger.Info("Webhook reconciled", "eventID", event.ID, "type", event.ProviderType, "bookingID", event.BookingID(), "outcome", outcome)

	delivery := &domain.WebhookDelivery{
		EventID:    event.ID,
		EventType:  event.ProviderType,
		BookingID:  event.BookingID(),
		Outcome:    outcome,
		Detail:     detail,
		ReceivedAt: s.now(),
	}
	if rerr := s.deliveryRepo.Record(ctx, delivery); rerr != nil {
		logger.Error("Failed to record webhook delivery", "eventID", event.ID, "error", rerr)
	}
	return outcome, err
}

func (s *webhookService) reconcile(ctx context.Context, event *domain.ProcessorEvent) (domain.WebhookOutcome, string, error) {
	if event.Type == domain.EventUnknown {
		return domain.WebhookOutcomeIgnored, "unhandled event type " + event.ProviderType, nil
	}

	bookingID := event.BookingID()
	if bookingID == "" {
		logger.Anomaly("orphan_event", "eventID", event.ID, "type", event.ProviderType, "objectID", event.ObjectID)
		return domain.WebhookOutcomeOrphan, "no booking_id in metadata", nil
	}
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Anomaly("orphan_event", "eventID", event.ID, "type", event.ProviderType, "bookingID", bookingID)
		return domain.WebhookOutcomeOrphan, "unknown booking", nil
	}
	if err != nil {
		return domain.WebhookOutcomeRetry, err.Error(), &RetryableError{Err: err}
	}

	switch event.Type {
	case domain.EventHoldAuthorized, domain.EventHoldSucceeded:
		return s.holdSucceeded(ctx, b, event)
	case domain.EventHoldFailed:
		return s.holdEnded(ctx, b, event, "payment failed")
	case domain.EventHoldCanceled:
		return s.holdEnded(ctx, b, event, "payment hold canceled")
	case domain.EventTransferCreated:
		return s.transferCreated(ctx, b, event)
	}
	return domain.WebhookOutcomeIgnored, "unhandled event type " + event.ProviderType, nil
}

func (s *webhookService) holdSucceeded(ctx context.Context, b *domain.Booking, event *domain.ProcessorEvent) (domain.WebhookOutcome, string, error) {
	if mismatch, detail := holdMismatch(b, event); mismatch {
		return domain.WebhookOutcomeIgnored, detail, nil
	}

	if b.PaymentIntentID == "" && b.Status == domain.BookingStatusApproved {
		err := s.bookingRepo.AttachPaymentIntent(ctx, b.ID, event.ObjectID)
		switch {
		case err == nil, errors.Is(err, domain.ErrStaleState):
		case errors.Is(err, domain.ErrHoldAlreadyAttached):
			logger.Anomaly("hold_mismatch", "bookingID", b.ID, "eventHold", event.ObjectID)
			return domain.WebhookOutcomeIgnored, err.Error(), nil
		default:
			return domain.WebhookOutcomeRetry, err.Error(), &RetryableError{Err: err}
		}
		b.PaymentIntentID = event.ObjectID
	}

	if b.HasReached(domain.BookingStatusPaid) {
		return domain.WebhookOutcomeDuplicate, "booking already " + string(b.Status), nil
	}

	res, err := s.bookings.ApplyTransition(ctx, b, domain.BookingStatusPaid, domain.ActorSystem, "payment succeeded")
	if err != nil {
		var terr *domain.TransitionError
		if event.Type == domain.EventHoldAuthorized && errors.As(err, &terr) && terr.From == domain.BookingStatusCancelled {
			// Authorized after the booking was cancelled; nothing was captured yet.
			_ = s.payments.ReleaseHold(ctx, b.ID, event.ObjectID)
		}
		return transitionFailure(b, event, err)
	}
	if !res.Applied {
		return domain.WebhookOutcomeDuplicate, "booking already " + string(res.Booking.Status), nil
	}

	if _, err := s.payments.ReleasePayout(ctx, res.Booking); err != nil {
		logger.Error("Payout failed, left for retry", "bookingID", b.ID, "error", err)
	}
	return domain.WebhookOutcomeApplied, "booking paid", nil
}

func (s *webhookService) holdEnded(ctx context.Context, b *domain.Booking, event *domain.ProcessorEvent, note string) (domain.WebhookOutcome, string, error) {
	if mismatch, detail := holdMismatch(b, event); mismatch {
		return domain.WebhookOutcomeIgnored, detail, nil
	}

	res, err := s.bookings.ApplyTransition(ctx, b, domain.BookingStatusCancelled, domain.ActorSystem, note)
	if err != nil {
		return transitionFailure(b, event, err)
	}
	if !res.Applied {
		return domain.WebhookOutcomeDuplicate, "booking already cancelled", nil
	}
	return domain.WebhookOutcomeApplied, "booking cancelled: " + note, nil
}

func (s *webhookService) transferCreated(ctx context.Context, b *domain.Booking, event *domain.ProcessorEvent) (domain.WebhookOutcome, string, error) {
	if b.TransferID == event.ObjectID {
		return domain.WebhookOutcomeDuplicate, "transfer already recorded", nil
	}

	err := s.bookingRepo.RecordTransfer(ctx, b.ID, event.ObjectID)
	switch {
	case err == nil:
		return domain.WebhookOutcomeApplied, "transfer recorded", nil
	case errors.Is(err, domain.ErrTransferAlreadyRecorded), errors.Is(err, domain.ErrPaymentNotComplete):
		logger.Anomaly("unexpected_transfer", "bookingID", b.ID, "transferID", event.ObjectID, "error", err)
		return domain.WebhookOutcomeIgnored, err.Error(), nil
	}
	return domain.WebhookOutcomeRetry, err.Error(), &RetryableError{Err: err}
}

// holdMismatch reports an event about a hold other than the one attached to the booking.
func holdMismatch(b *domain.Booking, event *domain.ProcessorEvent) (bool, string) {
	if b.PaymentIntentID == "" || b.PaymentIntentID == event.ObjectID {
		return false, ""
	}
	logger.Anomaly("hold_mismatch", "bookingID", b.ID, "attached", b.PaymentIntentID, "eventHold", event.ObjectID)
	return true, fmt.Sprintf("event hold %s is not the booking's hold %s", event.ObjectID, b.PaymentIntentID)
}

// transitionFailure separates semantic rejections, which are acknowledged, from failures
// worth a redelivery.
func transitionFailure(b *domain.Booking, event *domain.ProcessorEvent, err error) (domain.WebhookOutcome, string, error) {
	var terr *domain.TransitionError
	if errors.As(err, &terr) && !errors.Is(err, domain.ErrStaleState) {
		logger.Anomaly("illegal_event_transition", "bookingID", b.ID, "eventID", event.ID, "type", event.ProviderType, "reason", terr.Reason)
		return domain.WebhookOutcomeIgnored, terr.Reason, nil
	}
	return domain.WebhookOutcomeRetry, err.Error(), &RetryableError{Err: err}
}
