package service

import (
	"context"
	"testing"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository/memory"
	"gearshare-backend/internal/utils"

	"github.com/stretchr/testify/require"
)

const (
	testRenterID      = "renter-1"
	testOwnerID       = "owner-1"
	testStrangerID    = "stranger-1"
	testGearID        = "gear-1"
	testWebhookSecret = "whsec_service_test"
)

// harness wires every service over the in-memory store and the mock processor.
type harness struct {
	store    *memory.Store
	proc     *processor.MockProcessor
	bookings BookingService
	payments PaymentService
	webhooks WebhookService
	reviews  ReviewService
	messages MessageService
	notifier NotificationService
	windows  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: testRenterID, Email: "renter@example.com", DisplayName: "Rita", ProcessorAccountID: "acct_renter"})
	store.PutUser(domain.User{ID: testOwnerID, Email: "owner@example.com", DisplayName: "Omar", ProcessorAccountID: "acct_owner"})
	store.PutUser(domain.User{ID: testStrangerID, Email: "stranger@example.com", DisplayName: "Sam"})
	store.PutGear(domain.Gear{ID: testGearID, OwnerID: testOwnerID, Title: "Canoe", DailyRateCents: 5000, Currency: "usd"})

	proc := processor.NewMockProcessor(testWebhookSecret, false)
	notifier := NewNotificationService(store.NotificationRepository, store.UserRepository, logEmailService{}, logPushService{}, nil)
	bookings := NewBookingService(store.BookingRepository, store.GearRepository, proc, notifier, domain.DefaultFeePolicy, "usd")
	payments := NewPaymentService(store.BookingRepository, store.UserRepository, bookings, proc)
	verifier := processor.NewStripeVerifier(testWebhookSecret, 5*time.Minute)

	return &harness{
		store:    store,
		proc:     proc,
		bookings: bookings,
		payments: payments,
		webhooks: NewWebhookService(verifier, store.BookingRepository, store.WebhookDeliveryRepository, bookings, payments),
		reviews:  NewReviewService(store.BookingRepository, store.ReviewRepository),
		messages: NewMessageService(store.BookingRepository, store.MessageRepository, notifier),
		notifier: notifier,
	}
}

// pendingBooking creates a two day booking: 10000 total, 10500 charged, 9500 paid out.
// Each call uses a fresh date window so bookings never collide on the gear.
func (h *harness) pendingBooking(t *testing.T) *domain.Booking {
	t.Helper()
	start := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 10*h.windows)
	h.windows++
	b, err := h.bookings.CreateBooking(context.Background(), testRenterID, testGearID,
		utils.FormatDate(start), utils.FormatDate(start.AddDate(0, 0, 2)))
	require.NoError(t, err)
	return b
}

func (h *harness) approvedBooking(t *testing.T) *domain.Booking {
	t.Helper()
	b := h.pendingBooking(t)
	approved, err := h.bookings.Transition(context.Background(), testOwnerID, b.ID, domain.BookingStatusApproved, "")
	require.NoError(t, err)
	return approved
}

// heldBooking returns an approved booking with a hold the renter has completed.
func (h *harness) heldBooking(t *testing.T) (*domain.Booking, string) {
	t.Helper()
	b := h.approvedBooking(t)
	hold, err := h.payments.CreateHold(context.Background(), testRenterID, b.ID)
	require.NoError(t, err)
	require.NoError(t, h.proc.SetHoldStatus(hold.HoldID, domain.HoldStatusAuthorized))
	return h.reload(t, b.ID), hold.HoldID
}

func (h *harness) paidBooking(t *testing.T) *domain.Booking {
	t.Helper()
	b, _ := h.heldBooking(t)
	paid, err := h.payments.ConfirmHold(context.Background(), testRenterID, b.ID)
	require.NoError(t, err)
	return paid
}

func (h *harness) completedBooking(t *testing.T) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	b := h.paidBooking(t)
	steps := []struct {
		user string
		to   domain.BookingStatus
	}{
		{testOwnerID, domain.BookingStatusActive},
		{testRenterID, domain.BookingStatusReturned},
		{testOwnerID, domain.BookingStatusCompleted},
	}
	for _, step := range steps {
		var err error
		b, err = h.bookings.Transition(ctx, step.user, b.ID, step.to, "")
		require.NoError(t, err)
	}
	return b
}

func (h *harness) reload(t *testing.T, id string) *domain.Booking {
	t.Helper()
	b, err := h.store.BookingRepository.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (h *harness) systemMessages(t *testing.T, bookingID string) []domain.Message {
	t.Helper()
	msgs, _, err := h.store.MessageRepository.ListByBooking(context.Background(), bookingID, 100, 0)
	require.NoError(t, err)
	var out []domain.Message
	for _, m := range msgs {
		if m.IsSystem() {
			out = append(out, m)
		}
	}
	return out
}
