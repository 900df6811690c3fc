package service

import (
	"context"
	"errors"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"github.com/google/uuid"
)

// TransitionResult reports the booking after a transition request. Applied is false when
// the booking already was at the target, so side effects tied to the change must not run.
type TransitionResult struct {
	Booking *domain.Booking
	Applied bool
}

type transitionMode int

const (
	// modeUser surfaces a lost race unless the winner produced the same status.
	modeUser transitionMode = iota
	// modeConverging re-evaluates the intent against the fresh state after a lost race.
	modeConverging
)

// attempt validates, persists and announces one transition. It re-reads at most once
// after a conditional save loses to a concurrent writer.
func (s *bookingService) attempt(ctx context.Context, current *domain.Booking, to domain.BookingStatus, actor domain.ActorRole, note string, mode transitionMode) (*TransitionResult, error) {
	for retried := false; ; retried = true {
		if mode == modeConverging && current.HasReached(to) {
			return &TransitionResult{Booking: current}, nil
		}

		next, err := domain.AttemptTransition(current, to, actor, note, s.now())
		if err != nil {
			return nil, err
		}
		entry := next.StatusHistory[len(next.StatusHistory)-1]
		msg := domain.NewSystemMessage(uuid.NewString(), next.ID, entry)

		err = s.bookingRepo.ConditionalSave(ctx, next, current.Status, msg)
		if err == nil {
			logger.Info("Booking transitioned", "bookingID", next.ID, "from", current.Status, "to", to, "actor", actor)
			s.notifier.NotifyMessage(ctx, next, msg)
			return &TransitionResult{Booking: next, Applied: true}, nil
		}
		if !errors.Is(err, domain.ErrStaleState) || retried {
			return nil, err
		}

		fresh, err := s.bookingRepo.GetByID(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		logger.Debug("Conditional save lost a race", "bookingID", current.ID, "expected", current.Status, "found", fresh.Status)

		if mode == modeUser {
			if fresh.Status == to {
				return &TransitionResult{Booking: fresh}, nil
			}
			return nil, &domain.TransitionError{
				Kind:   domain.ErrStaleState,
				From:   fresh.Status,
				To:     to,
				Actor:  actor,
				Reason: fmt.Sprintf("booking was changed to %s by someone else, reload and try again", fresh.Status),
			}
		}
		current = fresh
	}
}
