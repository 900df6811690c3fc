package service

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/processor"

	"github.com/stretchr/testify/mock"
)

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *domain.Booking, msg *domain.Message) error {
	args := m.Called(ctx, b, msg)
	return args.Error(0)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking).Clone(), args.Error(1)
}
func (m *MockBookingRepo) ConditionalSave(ctx context.Context, b *domain.Booking, expected domain.BookingStatus, msg *domain.Message) error {
	args := m.Called(ctx, b, expected, msg)
	return args.Error(0)
}
func (m *MockBookingRepo) AttachPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error {
	args := m.Called(ctx, bookingID, paymentIntentID)
	return args.Error(0)
}
func (m *MockBookingRepo) RecordTransfer(ctx context.Context, bookingID, transferID string) error {
	args := m.Called(ctx, bookingID, transferID)
	return args.Error(0)
}
func (m *MockBookingRepo) ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, renterID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingRepo) ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, ownerID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingRepo) ListStale(ctx context.Context, status domain.BookingStatus, updatedBefore time.Time, limit int32) ([]domain.Booking, error) {
	args := m.Called(ctx, status, updatedBefore, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) ListAwaitingPayout(ctx context.Context, paidBefore time.Time, limit int32) ([]domain.Booking, error) {
	args := m.Called(ctx, paidBefore, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) HasOverlap(ctx context.Context, gearID string, start, end time.Time) (bool, error) {
	args := m.Called(ctx, gearID, start, end)
	return args.Bool(0), args.Error(1)
}

// MockProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) AccountReady(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}
func (m *MockProcessor) CreateHold(ctx context.Context, req processor.HoldRequest) (*domain.Hold, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}
func (m *MockProcessor) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	args := m.Called(ctx, holdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}
func (m *MockProcessor) CaptureHold(ctx context.Context, holdID, idempotencyKey string) (*domain.Hold, error) {
	args := m.Called(ctx, holdID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}
func (m *MockProcessor) CancelHold(ctx context.Context, holdID string) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}
func (m *MockProcessor) CreateTransfer(ctx context.Context, req processor.TransferRequest) (*domain.Transfer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transfer), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotifier) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}
func (m *MockNotifier) NotifyMessage(ctx context.Context, b *domain.Booking, msg *domain.Message) {
	m.Called(ctx, b, msg)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBookingUpdate(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

// MockPushService
type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	args := m.Called(ctx, token, title, body, data)
	return args.Error(0)
}

// MockDeliveryRepo
type MockDeliveryRepo struct {
	mock.Mock
}

func (m *MockDeliveryRepo) Record(ctx context.Context, d *domain.WebhookDelivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockDeliveryRepo) ListByBooking(ctx context.Context, bookingID string) ([]domain.WebhookDelivery, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.WebhookDelivery), args.Error(1)
}
