package repository

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
)

type BookingRepository interface {
	// Create stores a new booking together with its first history entry and system message.
	Create(ctx context.Context, b *domain.Booking, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// ConditionalSave persists a transition computed from a booking that was loaded in
	// status expected. It writes the new status, the last history entry and msg atomically,
	// and fails with domain.ErrStaleState when the stored status is no longer expected.
	ConditionalSave(ctx context.Context, b *domain.Booking, expected domain.BookingStatus, msg *domain.Message) error

	// AttachPaymentIntent sets the hold id once while the booking is approved.
	AttachPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error
	// RecordTransfer sets the payout transfer id once after payment.
	RecordTransfer(ctx context.Context, bookingID, transferID string) error

	ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListStale(ctx context.Context, status domain.BookingStatus, updatedBefore time.Time, limit int32) ([]domain.Booking, error)
	ListAwaitingPayout(ctx context.Context, paidBefore time.Time, limit int32) ([]domain.Booking, error)
	HasOverlap(ctx context.Context, gearID string, start, end time.Time) (bool, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	ListByBooking(ctx context.Context, bookingID string, limit, offset int32) ([]domain.Message, int32, error)
}

type ReviewRepository interface {
	// Create fails with domain.ErrAlreadyReviewed when the reviewer already reviewed the booking.
	Create(ctx context.Context, r *domain.Review) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Review, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type GearRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Gear, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

type WebhookDeliveryRepository interface {
	Record(ctx context.Context, d *domain.WebhookDelivery) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.WebhookDelivery, error)
}
