package service

import (
	"context"
	"errors"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository"
)

// HoldResult is what the renter's client needs to complete the payment.
type HoldResult struct {
	HoldID       string            `json:"hold_id"`
	ClientSecret string            `json:"client_secret"`
	Status       domain.HoldStatus `json:"status"`
	AmountCents  int64             `json:"amount_cents"`
	Currency     string            `json:"currency"`
}

type paymentService struct {
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	bookings    BookingService
	proc        processor.Processor
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	bookings BookingService,
	proc processor.Processor,
) PaymentService {
	return &paymentService{
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		bookings:    bookings,
		proc:        proc,
	}
}

func (s *paymentService) CreateHold(ctx context.Context, userID, bookingID string) (*HoldResult, error) {
	logger.EnterMethod("paymentService.CreateHold", "userID", userID, "bookingID", bookingID)

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	role, ok := b.RoleOf(userID)
	if !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	if err := domain.CheckTransition(b, domain.BookingStatusPaid, role); err != nil {
		return nil, err
	}

	renter, err := s.userRepo.GetByID(ctx, b.RenterID)
	if err != nil {
		return nil, err
	}
	owner, err := s.userRepo.GetByID(ctx, b.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAccountReady(ctx, renter, domain.ActorRenter); err != nil {
		return nil, err
	}
	if err := s.ensureAccountReady(ctx, owner, domain.ActorOwner); err != nil {
		return nil, err
	}

	if b.PaymentIntentID != "" {
		hold, err := s.proc.GetHold(ctx, b.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		logger.ExitMethod("paymentService.CreateHold", "bookingID", b.ID, "holdID", hold.ID, "reused", true)
		return newHoldResult(hold), nil
	}

	hold, err := s.proc.CreateHold(ctx, processor.HoldRequest{
		IdempotencyKey: processor.HoldIdempotencyKey(b.ID),
		AmountCents:    b.RenterAmountCents,
		Currency:       b.Currency,
		Description:    "Gear rental " + b.ID,
		TransferGroup:  b.ID,
		Metadata:       domain.HoldMetadata(b),
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.CreateHold", err, "bookingID", b.ID)
		return nil, err
	}

	err = s.bookingRepo.AttachPaymentIntent(ctx, b.ID, hold.ID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrHoldAlreadyAttached):
		fresh, ferr := s.bookingRepo.GetByID(ctx, b.ID)
		if ferr != nil {
			return nil, ferr
		}
		logger.Anomaly("duplicate_hold", "bookingID", b.ID, "attached", fresh.PaymentIntentID, "created", hold.ID)
		_ = s.ReleaseHold(ctx, b.ID, hold.ID)
		if hold, err = s.proc.GetHold(ctx, fresh.PaymentIntentID); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrStaleState):
		fresh, ferr := s.bookingRepo.GetByID(ctx, b.ID)
		if ferr != nil {
			return nil, ferr
		}
		if fresh.Status == domain.BookingStatusCancelled {
			_ = s.ReleaseHold(ctx, b.ID, hold.ID)
		}
		if cerr := domain.CheckTransition(fresh, domain.BookingStatusPaid, role); cerr != nil {
			return nil, cerr
		}
		return nil, err
	default:
		return nil, err
	}

	logger.ExitMethod("paymentService.CreateHold", "bookingID", b.ID, "holdID", hold.ID)
	return newHoldResult(hold), nil
}

func (s *paymentService) ConfirmHold(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	logger.EnterMethod("paymentService.ConfirmHold", "userID", userID, "bookingID", bookingID)

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	role, ok := b.RoleOf(userID)
	if !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	if role == domain.ActorRenter && b.HasReached(domain.BookingStatusPaid) {
		return b, nil
	}
	if err := domain.CheckTransition(b, domain.BookingStatusPaid, role); err != nil {
		return nil, err
	}
	if b.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: no payment hold was created for this booking", domain.ErrPaymentNotComplete)
	}

	hold, err := s.proc.GetHold(ctx, b.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if !hold.Status.Secured() {
		return nil, fmt.Errorf("%w: payment is %s", domain.ErrPaymentNotComplete, hold.Status)
	}

	res, err := s.bookings.ApplyTransition(ctx, b, domain.BookingStatusPaid, role, "payment confirmed")
	if err != nil {
		logger.ExitMethodWithError("paymentService.ConfirmHold", err, "bookingID", b.ID)
		return nil, err
	}
	if res.Applied {
		if transferID, err := s.ReleasePayout(ctx, res.Booking); err != nil {
			logger.Error("Payout failed, left for retry", "bookingID", b.ID, "error", err)
		} else {
			res.Booking.TransferID = transferID
		}
	}

	logger.ExitMethod("paymentService.ConfirmHold", "bookingID", b.ID, "applied", res.Applied)
	return res.Booking, nil
}

func (s *paymentService) ReleasePayout(ctx context.Context, b *domain.Booking) (string, error) {
	if b.TransferID != "" {
		return b.TransferID, nil
	}
	if b.PaidAt == nil || b.PaymentIntentID == "" {
		return "", fmt.Errorf("booking %s: %w", b.ID, domain.ErrPaymentNotComplete)
	}

	owner, err := s.userRepo.GetByID(ctx, b.OwnerID)
	if err != nil {
		return "", err
	}
	if owner.ProcessorAccountID == "" {
		return "", &domain.AccountNotReadyError{UserID: owner.ID, Party: domain.ActorOwner}
	}
	hold, err := s.proc.GetHold(ctx, b.PaymentIntentID)
	if err != nil {
		return "", err
	}
	if hold.Status == domain.HoldStatusAuthorized {
		if hold, err = s.proc.CaptureHold(ctx, hold.ID, processor.CaptureIdempotencyKey(b.ID)); err != nil {
			return "", err
		}
	}
	if hold.Status != domain.HoldStatusSucceeded {
		return "", fmt.Errorf("booking %s: hold is %s: %w", b.ID, hold.Status, domain.ErrPaymentNotComplete)
	}

	tr, err := s.proc.CreateTransfer(ctx, processor.TransferRequest{
		IdempotencyKey:     processor.TransferIdempotencyKey(b.ID),
		AmountCents:        b.OwnerPayoutCents(),
		Currency:           b.Currency,
		DestinationAccount: owner.ProcessorAccountID,
		SourceChargeID:     hold.ChargeID,
		TransferGroup:      b.ID,
		Metadata:           map[string]string{domain.MetadataBookingID: b.ID},
	})
	if err != nil {
		return "", err
	}

	if err := s.bookingRepo.RecordTransfer(ctx, b.ID, tr.ID); err != nil {
		if errors.Is(err, domain.ErrTransferAlreadyRecorded) {
			logger.Anomaly("duplicate_transfer", "bookingID", b.ID, "transferID", tr.ID)
		}
		return "", err
	}
	logger.Info("Payout released", "bookingID", b.ID, "transferID", tr.ID, "amountCents", tr.AmountCents)
	return tr.ID, nil
}

func (s *paymentService) ReleaseHold(ctx context.Context, bookingID, holdID string) error {
	if err := s.proc.CancelHold(ctx, holdID); err != nil {
		logger.Anomaly("hold_cancel_failed", "bookingID", bookingID, "holdID", holdID, "error", err)
		return err
	}
	logger.Info("Payment hold released", "bookingID", bookingID, "holdID", holdID)
	return nil
}

func (s *paymentService) ensureAccountReady(ctx context.Context, u *domain.User, party domain.ActorRole) error {
	if u.ProcessorAccountID == "" {
		return &domain.AccountNotReadyError{UserID: u.ID, Party: party}
	}
	ready, err := s.proc.AccountReady(ctx, u.ProcessorAccountID)
	if err != nil {
		return err
	}
	if !ready {
		return &domain.AccountNotReadyError{UserID: u.ID, Party: party}
	}
	return nil
}

func newHoldResult(h *domain.Hold) *HoldResult {
	return &HoldResult{
		HoldID:       h.ID,
		ClientSecret: h.ClientSecret,
		Status:       h.Status,
		AmountCents:  h.AmountCents,
		Currency:     h.Currency,
	}
}
