package service

import (
	"context"

	"gearshare-backend/internal/domain"
)

type BookingService interface {
	CreateBooking(ctx context.Context, renterID, gearID, startDate, endDate string) (*domain.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID string, role domain.ActorRole, status string, page, pageSize int32) ([]domain.Booking, int32, error)

	// Transition applies a status change requested by a party of the booking. The
	// caller's role is derived from the booking, never taken from the request.
	Transition(ctx context.Context, userID, bookingID string, to domain.BookingStatus, note string) (*domain.Booking, error)

	// ApplyTransition is the path used by payment confirmation, the webhook reconciler
	// and scheduled jobs. It converges: a booking already at or past the target is a no-op.
	ApplyTransition(ctx context.Context, b *domain.Booking, to domain.BookingStatus, actor domain.ActorRole, note string) (*TransitionResult, error)
}

type PaymentService interface {
	CreateHold(ctx context.Context, userID, bookingID string) (*HoldResult, error)
	ConfirmHold(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	// ReleasePayout transfers the owner's share of a paid booking and returns the transfer id.
	ReleasePayout(ctx context.Context, b *domain.Booking) (string, error)
	// ReleaseHold voids a hold that was authorized for a booking which can no longer be paid.
	ReleaseHold(ctx context.Context, bookingID, holdID string) error
}

type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (domain.WebhookOutcome, error)
}

type ReviewService interface {
	SubmitReview(ctx context.Context, reviewerID, bookingID string, ratings domain.Ratings) (*domain.Review, error)
	ListReviews(ctx context.Context, userID, bookingID string) ([]domain.Review, error)
}

type MessageService interface {
	PostMessage(ctx context.Context, userID, bookingID, body string, msgType domain.MessageType) (*domain.Message, error)
	ListMessages(ctx context.Context, userID, bookingID string, page, pageSize int32) ([]domain.Message, int32, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	// NotifyMessage fans a booking message out to its recipients. Delivery is best-effort.
	NotifyMessage(ctx context.Context, b *domain.Booking, msg *domain.Message)
}

type EmailService interface {
	SendBookingUpdate(ctx context.Context, toEmail, toName, subject, body string) error
}

type PushService interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}
