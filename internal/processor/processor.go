// Package processor talks to the external payment processor: payment holds on the
// renter's side, payout transfers on the owner's side, and signed webhook events.
package processor

import (
	"context"
	"errors"

	"gearshare-backend/internal/domain"
)

// ErrMalformedEvent is returned for a correctly signed payload that cannot be parsed.
var ErrMalformedEvent = errors.New("malformed processor event")

type HoldRequest struct {
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	Description    string
	TransferGroup  string
	Metadata       map[string]string
}

type TransferRequest struct {
	IdempotencyKey     string
	AmountCents        int64
	Currency           string
	DestinationAccount string
	SourceChargeID     string
	TransferGroup      string
	Metadata           map[string]string
}

type Processor interface {
	// AccountReady reports whether a connected account can take charges and receive payouts.
	AccountReady(ctx context.Context, accountID string) (bool, error)
	CreateHold(ctx context.Context, req HoldRequest) (*domain.Hold, error)
	GetHold(ctx context.Context, holdID string) (*domain.Hold, error)
	// CaptureHold collects the authorized funds of a hold. Capturing an already captured
	// hold returns it unchanged.
	CaptureHold(ctx context.Context, holdID, idempotencyKey string) (*domain.Hold, error)
	// CancelHold voids a hold that was not captured, releasing the renter's funds.
	CancelHold(ctx context.Context, holdID string) error
	CreateTransfer(ctx context.Context, req TransferRequest) (*domain.Transfer, error)
}

type EventVerifier interface {
	// VerifyEvent checks the signature header and decodes the event. Signature failures
	// wrap domain.ErrInvalidSignature.
	VerifyEvent(payload []byte, signature string) (*domain.ProcessorEvent, error)
}

func HoldIdempotencyKey(bookingID string) string {
	return "hold-" + bookingID
}

func CaptureIdempotencyKey(bookingID string) string {
	return "capture-" + bookingID
}

func TransferIdempotencyKey(bookingID string) string {
	return "transfer-" + bookingID
}
