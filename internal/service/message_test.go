package service

import (
	"context"
	"testing"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMessageService_PostAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.pendingBooking(t)

	msg, err := h.messages.PostMessage(ctx, testRenterID, b.ID, "Can I pick it up at 9?", "")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, testRenterID, *msg.SenderID)

	msgs, total, err := h.messages.ListMessages(ctx, testOwnerID, b.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), total, "the booking request announcement and the renter's message")
	assert.Equal(t, msg.ID, msgs[1].ID)

	_, _, err = h.messages.ListMessages(ctx, testStrangerID, b.ID, 1, 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedActor)
}

func TestMessageService_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.pendingBooking(t)

	_, err := h.messages.PostMessage(ctx, testRenterID, b.ID, "I am the platform", domain.MessageTypeSystem)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.messages.PostMessage(ctx, testRenterID, b.ID, "   ", domain.MessageTypeText)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.messages.PostMessage(ctx, testStrangerID, b.ID, "hello", domain.MessageTypeText)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedActor)
}

func TestMessageService_AllowedAfterTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.pendingBooking(t)
	_, err := h.bookings.Transition(ctx, testRenterID, b.ID, domain.BookingStatusCancelled, "")
	require.NoError(t, err)

	_, err = h.messages.PostMessage(ctx, testOwnerID, b.ID, "No problem, maybe next time", domain.MessageTypeText)
	assert.NoError(t, err)
}

func TestMessageService_NotifiesCounterparty(t *testing.T) {
	store := memory.NewStore()
	notifier := new(MockNotifier)
	svc := NewMessageService(store.BookingRepository, store.MessageRepository, notifier)
	ctx := context.Background()

	b := bookingIn(domain.BookingStatusPending)
	require.NoError(t, store.BookingRepository.Create(ctx, b, nil))
	notifier.On("NotifyMessage", ctx, mock.MatchedBy(func(got *domain.Booking) bool {
		return got.ID == b.ID
	}), mock.MatchedBy(func(m *domain.Message) bool {
		return m.Body == "hi" && *m.SenderID == testOwnerID
	})).Return().Once()

	_, err := svc.PostMessage(ctx, testOwnerID, b.ID, "hi", domain.MessageTypeImage)
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}
