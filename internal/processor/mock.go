package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76/webhook"
)

const mockService = "mock-processor"

// MockProcessor is an in-process stand-in for Stripe used in development and tests.
// It honors idempotency keys the same way the real API does and signs the events it
// emits with the configured webhook secret, so StripeVerifier accepts them.
type MockProcessor struct {
	mu            sync.Mutex
	webhookSecret string
	autoSucceed   bool

	holds         map[string]*domain.Hold
	holdsByKey    map[string]string
	transfers     map[string]*domain.Transfer
	notReady      map[string]bool
	cancelCalls   int
	captureCalls  int
	transferCalls int
}

func NewMockProcessor(webhookSecret string, autoSucceed bool) *MockProcessor {
	return &MockProcessor{
		webhookSecret: webhookSecret,
		autoSucceed:   autoSucceed,
		holds:         make(map[string]*domain.Hold),
		holdsByKey:    make(map[string]string),
		transfers:     make(map[string]*domain.Transfer),
		notReady:      make(map[string]bool),
	}
}

// SetAccountReady marks a connected account as onboarded or not. Accounts are ready
// unless marked otherwise.
func (m *MockProcessor) SetAccountReady(accountID string, ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notReady[accountID] = !ready
}

func (m *MockProcessor) AccountReady(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.notReady[accountID], nil
}

func (m *MockProcessor) CreateHold(ctx context.Context, req HoldRequest) (*domain.Hold, error) {
	logger.ExternalServiceCall(mockService, "holds.create", "idempotencyKey", req.IdempotencyKey, "amount", req.AmountCents)
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.holdsByKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		c := *m.holds[id]
		return &c, nil
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("mock processor: amount must be positive")
	}

	id := "pi_" + uuid.NewString()
	h := &domain.Hold{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Status:       domain.HoldStatusPending,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		Metadata:     copyMetadata(req.Metadata),
	}
	if m.autoSucceed {
		h.Status = domain.HoldStatusAuthorized
		h.ChargeID = "ch_" + uuid.NewString()
	}
	m.holds[id] = h
	if req.IdempotencyKey != "" {
		m.holdsByKey[req.IdempotencyKey] = id
	}

	c := *h
	return &c, nil
}

func (m *MockProcessor) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return nil, fmt.Errorf("mock processor: hold %s not found", holdID)
	}
	c := *h
	return &c, nil
}

func (m *MockProcessor) CaptureHold(ctx context.Context, holdID, idempotencyKey string) (*domain.Hold, error) {
	logger.ExternalServiceCall(mockService, "holds.capture", "holdID", holdID, "idempotencyKey", idempotencyKey)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.captureCalls++
	h, ok := m.holds[holdID]
	if !ok {
		return nil, fmt.Errorf("mock processor: hold %s not found", holdID)
	}
	switch h.Status {
	case domain.HoldStatusSucceeded:
	case domain.HoldStatusAuthorized:
		h.Status = domain.HoldStatusSucceeded
	default:
		return nil, fmt.Errorf("mock processor: hold %s is %s and cannot be captured", holdID, h.Status)
	}
	c := *h
	return &c, nil
}

func (m *MockProcessor) CancelHold(ctx context.Context, holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelCalls++
	h, ok := m.holds[holdID]
	if !ok {
		return fmt.Errorf("mock processor: hold %s not found", holdID)
	}
	if h.Status == domain.HoldStatusSucceeded {
		return fmt.Errorf("mock processor: hold %s already captured", holdID)
	}
	h.Status = domain.HoldStatusCanceled
	return nil
}

func (m *MockProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*domain.Transfer, error) {
	logger.ExternalServiceCall(mockService, "transfers.create", "idempotencyKey", req.IdempotencyKey, "amount", req.AmountCents)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transferCalls++
	if t, ok := m.transfers[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		c := *t
		return &c, nil
	}
	if m.notReady[req.DestinationAccount] {
		return nil, fmt.Errorf("mock processor: destination %s cannot receive transfers", req.DestinationAccount)
	}

	t := &domain.Transfer{
		ID:          "tr_" + uuid.NewString(),
		AmountCents: req.AmountCents,
		Destination: req.DestinationAccount,
	}
	key := req.IdempotencyKey
	if key == "" {
		key = t.ID
	}
	m.transfers[key] = t
	c := *t
	return &c, nil
}

// SetHoldStatus simulates the renter completing (or failing) the payment on the client.
// Completing it on the client authorizes the hold; capture happens on payout.
func (m *MockProcessor) SetHoldStatus(holdID string, status domain.HoldStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return fmt.Errorf("mock processor: hold %s not found", holdID)
	}
	h.Status = status
	if status.Secured() && h.ChargeID == "" {
		h.ChargeID = "ch_" + uuid.NewString()
	}
	return nil
}

// Transfers returns every distinct transfer created so far.
func (m *MockProcessor) Transfers() []domain.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Transfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		out = append(out, *t)
	}
	return out
}

// TransferCalls counts CreateTransfer invocations, including idempotent replays.
func (m *MockProcessor) TransferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transferCalls
}

func (m *MockProcessor) CancelCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCalls
}

func (m *MockProcessor) CaptureCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureCalls
}

var providerEventTypes = map[domain.ProcessorEventType]string{
	domain.EventHoldAuthorized: "payment_intent.amount_capturable_updated",
	domain.EventHoldSucceeded:  "payment_intent.succeeded",
	domain.EventHoldFailed:     "payment_intent.payment_failed",
	domain.EventHoldCanceled:   "payment_intent.canceled",
}

// HoldEvent builds a Stripe-shaped payment_intent event for a hold and signs it.
// It returns the payload and the Stripe-Signature header value.
func (m *MockProcessor) HoldEvent(eventType domain.ProcessorEventType, holdID string) ([]byte, string, error) {
	providerType, ok := providerEventTypes[eventType]
	if !ok {
		return nil, "", fmt.Errorf("mock processor: %s is not a hold event", eventType)
	}

	m.mu.Lock()
	h, found := m.holds[holdID]
	var object map[string]any
	if found {
		object = map[string]any{
			"id":       h.ID,
			"object":   "payment_intent",
			"amount":   h.AmountCents,
			"currency": h.Currency,
			"metadata": copyMetadata(h.Metadata),
		}
	}
	m.mu.Unlock()
	if !found {
		return nil, "", fmt.Errorf("mock processor: hold %s not found", holdID)
	}
	return m.SignedEvent(providerType, object)
}

// SignedEvent wraps object in an event envelope and signs it with the webhook secret.
func (m *MockProcessor) SignedEvent(providerType string, object map[string]any) ([]byte, string, error) {
	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"id":      "evt_" + uuid.NewString(),
		"object":  "event",
		"type":    providerType,
		"created": now.Unix(),
		"data":    map[string]any{"object": object},
	})
	if err != nil {
		return nil, "", err
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    m.webhookSecret,
		Timestamp: now,
	})
	return signed.Payload, signed.Header, nil
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
