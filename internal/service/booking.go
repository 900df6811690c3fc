package service

import (
	"context"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository"
	"gearshare-backend/internal/utils"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type bookingService struct {
	bookingRepo repository.BookingRepository
	gearRepo    repository.GearRepository
	proc        processor.Processor
	notifier    NotificationService
	feePolicy   domain.FeePolicy
	currency    string
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	gearRepo repository.GearRepository,
	proc processor.Processor,
	notifier NotificationService,
	feePolicy domain.FeePolicy,
	currency string,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		gearRepo:    gearRepo,
		proc:        proc,
		notifier:    notifier,
		feePolicy:   feePolicy,
		currency:    currency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, renterID, gearID, startDate, endDate string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "renterID", renterID, "gearID", gearID, "startDate", startDate, "endDate", endDate)

	start, err := utils.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := utils.ParseDate(endDate)
	if err != nil {
		return nil, err
	}

	gear, err := s.gearRepo.GetByID(ctx, gearID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "reason", "gear lookup failed")
		return nil, err
	}
	if gear.Currency == "" {
		gear.Currency = s.currency
	}

	total, err := utils.CalculateRentalCost(start, end, gear)
	if err != nil {
		return nil, err
	}
	booking, err := domain.NewBooking(uuid.NewString(), gear, renterID, start, end, utils.ComputeFeeSplit(total, s.feePolicy), s.now())
	if err != nil {
		return nil, err
	}

	overlap, err := s.bookingRepo.HasOverlap(ctx, gear.ID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("gear %s from %s to %s: %w", gear.ID, startDate, endDate, domain.ErrGearUnavailable)
	}

	msg := domain.NewSystemMessage(uuid.NewString(), booking.ID, booking.StatusHistory[0])
	if err := s.bookingRepo.Create(ctx, booking, msg); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}
	s.notifier.NotifyMessage(ctx, booking, msg)

	logger.ExitMethod("bookingService.CreateBooking", "bookingID", booking.ID, "totalCents", booking.TotalAmountCents)
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := b.RoleOf(userID); !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	return b, nil
}

func (s *bookingService) ListBookings(ctx context.Context, userID string, role domain.ActorRole, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if status != "" {
		st, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, 0, err
		}
		status = string(st)
	}
	page, pageSize = normalizePage(page, pageSize)

	switch role {
	case domain.ActorRenter:
		return s.bookingRepo.ListByRenter(ctx, userID, status, page, pageSize)
	case domain.ActorOwner:
		return s.bookingRepo.ListByOwner(ctx, userID, status, page, pageSize)
	}
	return nil, 0, fmt.Errorf("%w: role must be renter or owner", domain.ErrInvalidInput)
}

func (s *bookingService) Transition(ctx context.Context, userID, bookingID string, to domain.BookingStatus, note string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.Transition", "userID", userID, "bookingID", bookingID, "to", to)

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	role, ok := b.RoleOf(userID)
	if !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	if to == domain.BookingStatusPaid {
		// Only a verified processor result may mark a booking paid.
		if err := domain.CheckTransition(b, to, role); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: confirm the payment hold instead", domain.ErrPaymentNotComplete)
	}

	if to == domain.BookingStatusCancelled && b.Status == domain.BookingStatusApproved && b.PaymentIntentID != "" {
		if err := s.settleSecuredHold(ctx, b, role); err != nil {
			logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", bookingID)
			return nil, err
		}
	}

	res, err := s.attempt(ctx, b, to, role, note, modeUser)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", bookingID)
		return nil, err
	}

	if res.Applied && to == domain.BookingStatusCancelled && b.PaymentIntentID != "" {
		s.cancelHold(ctx, b.ID, b.PaymentIntentID)
	}

	logger.ExitMethod("bookingService.Transition", "bookingID", bookingID, "status", res.Booking.Status, "applied", res.Applied)
	return res.Booking, nil
}

func (s *bookingService) ApplyTransition(ctx context.Context, b *domain.Booking, to domain.BookingStatus, actor domain.ActorRole, note string) (*TransitionResult, error) {
	return s.attempt(ctx, b, to, actor, note, modeConverging)
}

// settleSecuredHold asks the processor about the hold before an approved booking is
// cancelled. If the renter already completed the payment the booking is moved to paid and
// the cancellation is refused; the payout follows through the payout retry job.
func (s *bookingService) settleSecuredHold(ctx context.Context, b *domain.Booking, role domain.ActorRole) error {
	hold, err := s.proc.GetHold(ctx, b.PaymentIntentID)
	if err != nil {
		return err
	}
	if !hold.Status.Secured() {
		return nil
	}

	logger.Anomaly("cancel_after_payment", "bookingID", b.ID, "holdID", hold.ID, "holdStatus", hold.Status)
	if _, err := s.attempt(ctx, b, domain.BookingStatusPaid, domain.ActorSystem, "payment succeeded", modeConverging); err != nil {
		logger.Warn("Failed to mark booking paid, reconciliation will retry", "bookingID", b.ID, "error", err)
	}
	return &domain.TransitionError{
		Kind:   domain.ErrInvalidTransition,
		From:   b.Status,
		To:     domain.BookingStatusCancelled,
		Actor:  role,
		Reason: "the renter has already paid for this booking, so it can no longer be cancelled",
	}
}

// cancelHold releases an open hold after its booking was cancelled. A failure leaves the
// hold to expire on the processor side.
func (s *bookingService) cancelHold(ctx context.Context, bookingID, holdID string) {
	if err := s.proc.CancelHold(ctx, holdID); err != nil {
		logger.Anomaly("hold_cancel_failed", "bookingID", bookingID, "holdID", holdID, "error", err)
	}
}

func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
