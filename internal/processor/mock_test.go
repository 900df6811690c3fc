package processor

import (
	"context"
	"testing"
	"time"

	"gearshare-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProcessor_CreateHoldIsIdempotent(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, false)
	ctx := context.Background()
	req := HoldRequest{IdempotencyKey: HoldIdempotencyKey("b1"), AmountCents: 105, Currency: "usd"}

	first, err := m.CreateHold(ctx, req)
	require.NoError(t, err)
	second, err := m.CreateHold(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.HoldStatusPending, first.Status)
}

func TestMockProcessor_AutoSucceed(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, true)
	hold, err := m.CreateHold(context.Background(), HoldRequest{IdempotencyKey: "k", AmountCents: 105, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusAuthorized, hold.Status)
	assert.NotEmpty(t, hold.ChargeID)
}

func TestMockProcessor_CaptureHold(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, true)
	ctx := context.Background()
	hold, err := m.CreateHold(ctx, HoldRequest{IdempotencyKey: "k", AmountCents: 105, Currency: "usd"})
	require.NoError(t, err)

	captured, err := m.CaptureHold(ctx, hold.ID, CaptureIdempotencyKey("b1"))
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusSucceeded, captured.Status)
	assert.Equal(t, hold.ChargeID, captured.ChargeID)

	again, err := m.CaptureHold(ctx, hold.ID, CaptureIdempotencyKey("b1"))
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusSucceeded, again.Status)
	assert.Equal(t, 2, m.CaptureCalls())

	manual := NewMockProcessor(testWebhookSecret, false)
	pending, _ := manual.CreateHold(ctx, HoldRequest{IdempotencyKey: "p", AmountCents: 105, Currency: "usd"})
	_, err = manual.CaptureHold(ctx, pending.ID, "capture-p")
	assert.Error(t, err, "the renter has not paid yet")
}

func TestMockProcessor_CancelAuthorizedHoldReleasesFunds(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, true)
	ctx := context.Background()
	hold, _ := m.CreateHold(ctx, HoldRequest{IdempotencyKey: "k", AmountCents: 105, Currency: "usd"})

	require.NoError(t, m.CancelHold(ctx, hold.ID))
	got, _ := m.GetHold(ctx, hold.ID)
	assert.Equal(t, domain.HoldStatusCanceled, got.Status)

	_, err := m.CaptureHold(ctx, hold.ID, "capture-b1")
	assert.Error(t, err)
}

func TestMockProcessor_TransferIsIdempotent(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, false)
	ctx := context.Background()
	req := TransferRequest{IdempotencyKey: TransferIdempotencyKey("b1"), AmountCents: 95, DestinationAccount: "acct_o"}

	first, err := m.CreateTransfer(ctx, req)
	require.NoError(t, err)
	second, err := m.CreateTransfer(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, m.Transfers(), 1)
	assert.Equal(t, 2, m.TransferCalls())
}

func TestMockProcessor_AccountReady(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, false)
	ctx := context.Background()

	ready, _ := m.AccountReady(ctx, "acct_1")
	assert.True(t, ready)

	m.SetAccountReady("acct_1", false)
	ready, _ = m.AccountReady(ctx, "acct_1")
	assert.False(t, ready)

	ready, _ = m.AccountReady(ctx, "")
	assert.False(t, ready)
}

func TestMockProcessor_CancelSucceededHoldFails(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, false)
	ctx := context.Background()
	hold, _ := m.CreateHold(ctx, HoldRequest{IdempotencyKey: "k", AmountCents: 105, Currency: "usd"})

	require.NoError(t, m.SetHoldStatus(hold.ID, domain.HoldStatusSucceeded))
	assert.Error(t, m.CancelHold(ctx, hold.ID))

	other, _ := m.CreateHold(ctx, HoldRequest{IdempotencyKey: "k2", AmountCents: 105, Currency: "usd"})
	require.NoError(t, m.CancelHold(ctx, other.ID))
	got, _ := m.GetHold(ctx, other.ID)
	assert.Equal(t, domain.HoldStatusCanceled, got.Status)
}

func TestMockProcessor_HoldEventVerifies(t *testing.T) {
	m := NewMockProcessor(testWebhookSecret, false)
	hold, err := m.CreateHold(context.Background(), HoldRequest{
		IdempotencyKey: HoldIdempotencyKey("b1"),
		AmountCents:    105,
		Currency:       "usd",
		Metadata:       map[string]string{domain.MetadataBookingID: "b1"},
	})
	require.NoError(t, err)

	payload, header, err := m.HoldEvent(domain.EventHoldFailed, hold.ID)
	require.NoError(t, err)

	event, err := NewStripeVerifier(testWebhookSecret, time.Minute).VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, domain.EventHoldFailed, event.Type)
	assert.Equal(t, hold.ID, event.ObjectID)
	assert.Equal(t, "b1", event.BookingID())

	_, _, err = m.HoldEvent(domain.EventTransferCreated, hold.ID)
	assert.Error(t, err)
}
