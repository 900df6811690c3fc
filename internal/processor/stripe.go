package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const stripeService = "stripe"

type StripeProcessor struct {
	sc *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{sc: client.New(secretKey, nil)}
}

// NewStripeProcessorWithBackends is used to point the client at a different API host.
func NewStripeProcessorWithBackends(secretKey string, backends *stripe.Backends) *StripeProcessor {
	return &StripeProcessor{sc: client.New(secretKey, backends)}
}

func (p *StripeProcessor) AccountReady(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	logger.ExternalServiceCall(stripeService, "accounts.get", "accountID", accountID)
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := p.sc.Accounts.GetByID(accountID, params)
	logger.ExternalServiceResult(stripeService, "accounts.get", err, "accountID", accountID)
	if err != nil {
		return false, fmt.Errorf("stripe: get account %s: %w", accountID, err)
	}
	return acct.ChargesEnabled && acct.PayoutsEnabled, nil
}

func (p *StripeProcessor) CreateHold(ctx context.Context, req HoldRequest) (*domain.Hold, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(req.Currency),
		TransferGroup: stripe.String(req.TransferGroup),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{Enabled: stripe.Bool(true)}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	logger.ExternalServiceCall(stripeService, "payment_intents.create", "idempotencyKey", req.IdempotencyKey, "amount", req.AmountCents)
	pi, err := p.sc.PaymentIntents.New(params)
	logger.ExternalServiceResult(stripeService, "payment_intents.create", err, "idempotencyKey", req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return holdFromPaymentIntent(pi), nil
}

func (p *StripeProcessor) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	logger.ExternalServiceCall(stripeService, "payment_intents.get", "holdID", holdID)
	pi, err := p.sc.PaymentIntents.Get(holdID, params)
	logger.ExternalServiceResult(stripeService, "payment_intents.get", err, "holdID", holdID)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent %s: %w", holdID, err)
	}
	return holdFromPaymentIntent(pi), nil
}

func (p *StripeProcessor) CaptureHold(ctx context.Context, holdID, idempotencyKey string) (*domain.Hold, error) {
	current, err := p.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.HoldStatusSucceeded {
		return current, nil
	}

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	logger.ExternalServiceCall(stripeService, "payment_intents.capture", "holdID", holdID, "idempotencyKey", idempotencyKey)
	pi, err := p.sc.PaymentIntents.Capture(holdID, params)
	logger.ExternalServiceResult(stripeService, "payment_intents.capture", err, "holdID", holdID)
	if err != nil {
		return nil, fmt.Errorf("stripe: capture payment intent %s: %w", holdID, err)
	}
	return holdFromPaymentIntent(pi), nil
}

func (p *StripeProcessor) CancelHold(ctx context.Context, holdID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	logger.ExternalServiceCall(stripeService, "payment_intents.cancel", "holdID", holdID)
	_, err := p.sc.PaymentIntents.Cancel(holdID, params)
	logger.ExternalServiceResult(stripeService, "payment_intents.cancel", err, "holdID", holdID)
	if err != nil {
		return fmt.Errorf("stripe: cancel payment intent %s: %w", holdID, err)
	}
	return nil
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*domain.Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(req.Currency),
		Destination:   stripe.String(req.DestinationAccount),
		TransferGroup: stripe.String(req.TransferGroup),
	}
	if req.SourceChargeID != "" {
		params.SourceTransaction = stripe.String(req.SourceChargeID)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	logger.ExternalServiceCall(stripeService, "transfers.create", "idempotencyKey", req.IdempotencyKey, "amount", req.AmountCents)
	tr, err := p.sc.Transfers.New(params)
	logger.ExternalServiceResult(stripeService, "transfers.create", err, "idempotencyKey", req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("stripe: create transfer: %w", err)
	}

	out := &domain.Transfer{ID: tr.ID, AmountCents: tr.Amount}
	if tr.Destination != nil {
		out.Destination = tr.Destination.ID
	}
	return out, nil
}

func holdFromPaymentIntent(pi *stripe.PaymentIntent) *domain.Hold {
	h := &domain.Hold{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.LatestCharge != nil {
		h.ChargeID = pi.LatestCharge.ID
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresCapture:
		h.Status = domain.HoldStatusAuthorized
	case stripe.PaymentIntentStatusSucceeded:
		h.Status = domain.HoldStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		h.Status = domain.HoldStatusCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			h.Status = domain.HoldStatusFailed
		} else {
			h.Status = domain.HoldStatusPending
		}
	default:
		h.Status = domain.HoldStatusPending
	}
	return h
}

// StripeVerifier checks the Stripe-Signature header of webhook deliveries.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeVerifier(secret string, tolerance time.Duration) *StripeVerifier {
	return &StripeVerifier{secret: secret, tolerance: tolerance}
}

func (v *StripeVerifier) VerifyEvent(payload []byte, signature string) (*domain.ProcessorEvent, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, v.secret, v.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &domain.ProcessorEvent{
		ID:           event.ID,
		ProviderType: string(event.Type),
		Type:         domain.EventUnknown,
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	switch string(event.Type) {
	case "payment_intent.amount_capturable_updated", "payment_intent.succeeded",
		"payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		out.ObjectID = pi.ID
		out.Metadata = pi.Metadata
		switch string(event.Type) {
		case "payment_intent.amount_capturable_updated":
			out.Type = domain.EventHoldAuthorized
		case "payment_intent.succeeded":
			out.Type = domain.EventHoldSucceeded
		case "payment_intent.payment_failed":
			out.Type = domain.EventHoldFailed
		default:
			out.Type = domain.EventHoldCanceled
		}
	case "transfer.created":
		var tr stripe.Transfer
		if err := json.Unmarshal(event.Data.Raw, &tr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		out.ObjectID = tr.ID
		out.Metadata = tr.Metadata
		out.Type = domain.EventTransferCreated
	}
	return out, nil
}
