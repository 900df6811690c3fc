package http

import (
	"context"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockBookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, renterID, gearID, startDate, endDate string) (*domain.Booking, error) {
	args := m.Called(ctx, renterID, gearID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) ListBookings(ctx context.Context, userID string, role domain.ActorRole, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, userID, role, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingService) Transition(ctx context.Context, userID, bookingID string, to domain.BookingStatus, note string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID, to, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) ApplyTransition(ctx context.Context, b *domain.Booking, to domain.BookingStatus, actor domain.ActorRole, note string) (*service.TransitionResult, error) {
	args := m.Called(ctx, b, to, actor, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

// MockPaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateHold(ctx context.Context, userID, bookingID string) (*service.HoldResult, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HoldResult), args.Error(1)
}
func (m *MockPaymentService) ConfirmHold(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockPaymentService) ReleasePayout(ctx context.Context, b *domain.Booking) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}
func (m *MockPaymentService) ReleaseHold(ctx context.Context, bookingID, holdID string) error {
	args := m.Called(ctx, bookingID, holdID)
	return args.Error(0)
}

// MockWebhookService
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (domain.WebhookOutcome, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(domain.WebhookOutcome), args.Error(1)
}

// MockReviewService
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) SubmitReview(ctx context.Context, reviewerID, bookingID string, ratings domain.Ratings) (*domain.Review, error) {
	args := m.Called(ctx, reviewerID, bookingID, ratings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}
func (m *MockReviewService) ListReviews(ctx context.Context, userID, bookingID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID, bookingID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

// MockMessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) PostMessage(ctx context.Context, userID, bookingID, body string, msgType domain.MessageType) (*domain.Message, error) {
	args := m.Called(ctx, userID, bookingID, body, msgType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockMessageService) ListMessages(ctx context.Context, userID, bookingID string, page, pageSize int32) ([]domain.Message, int32, error) {
	args := m.Called(ctx, userID, bookingID, page, pageSize)
	return args.Get(0).([]domain.Message), args.Get(1).(int32), args.Error(2)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}
func (m *MockNotificationService) NotifyMessage(ctx context.Context, b *domain.Booking, msg *domain.Message) {
	m.Called(ctx, b, msg)
}
