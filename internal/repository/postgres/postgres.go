package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.MessageRepository
	repository.ReviewRepository
	repository.UserRepository
	repository.GearRepository
	repository.NotificationRepository
	repository.WebhookDeliveryRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                        db,
		BookingRepository:         NewBookingRepository(db),
		MessageRepository:         NewMessageRepository(db),
		ReviewRepository:          NewReviewRepository(db),
		UserRepository:            NewUserRepository(db),
		GearRepository:            NewGearRepository(db),
		NotificationRepository:    NewNotificationRepository(db),
		WebhookDeliveryRepository: NewWebhookDeliveryRepository(db),
	}
}

// PingContext reports whether the database is reachable
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapError translates constraint violations into domain errors
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Code == pqExclusionViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, domain.ErrGearUnavailable)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
