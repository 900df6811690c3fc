package domain

// FeePolicy expresses each party's share of the platform fee in basis points.
type FeePolicy struct {
	RenterBps int64
	OwnerBps  int64
}

// DefaultFeePolicy is the 10% platform fee split 5% renter surcharge / 5% owner deduction.
var DefaultFeePolicy = FeePolicy{RenterBps: 500, OwnerBps: 500}

type FeeSplit struct {
	TotalCents        int64 `json:"total_cents"`
	RenterFeeCents    int64 `json:"renter_fee_cents"`
	OwnerFeeCents     int64 `json:"owner_fee_cents"`
	PlatformFeeCents  int64 `json:"platform_fee_cents"`
	RenterAmountCents int64 `json:"renter_amount_cents"`
	OwnerPayoutCents  int64 `json:"owner_payout_cents"`
}

type HoldStatus string

const (
	HoldStatusPending HoldStatus = "pending"
	// HoldStatusAuthorized means the renter's funds are reserved but not yet captured.
	HoldStatusAuthorized HoldStatus = "authorized"
	HoldStatusSucceeded  HoldStatus = "succeeded"
	HoldStatusFailed     HoldStatus = "failed"
	HoldStatusCanceled   HoldStatus = "canceled"
)

// Secured reports whether the renter has completed the payment, whether or not the
// funds were captured yet.
func (s HoldStatus) Secured() bool {
	return s == HoldStatusAuthorized || s == HoldStatusSucceeded
}

// Hold is the processor-side authorization to charge the renter.
type Hold struct {
	ID           string
	ClientSecret string
	Status       HoldStatus
	AmountCents  int64
	Currency     string
	ChargeID     string
	Metadata     map[string]string
}

type Transfer struct {
	ID          string
	AmountCents int64
	Destination string
}

// Metadata keys attached to holds and transfers; they are the only link from a
// processor event back to its booking.
const (
	MetadataBookingID = "booking_id"
	MetadataRenterID  = "renter_id"
	MetadataOwnerID   = "owner_id"
	MetadataGearID    = "gear_id"
)

// HoldMetadata builds the immutable metadata set attached to a booking's hold.
func HoldMetadata(b *Booking) map[string]string {
	return map[string]string{
		MetadataBookingID: b.ID,
		MetadataRenterID:  b.RenterID,
		MetadataOwnerID:   b.OwnerID,
		MetadataGearID:    b.GearID,
	}
}

type ProcessorEventType string

const (
	EventHoldAuthorized  ProcessorEventType = "hold.authorized"
	EventHoldSucceeded   ProcessorEventType = "hold.succeeded"
	EventHoldFailed      ProcessorEventType = "hold.failed"
	EventHoldCanceled    ProcessorEventType = "hold.canceled"
	EventTransferCreated ProcessorEventType = "transfer.created"
	EventUnknown         ProcessorEventType = "unknown"
)

// ProcessorEvent is a verified, provider-neutral webhook event.
type ProcessorEvent struct {
	ID           string
	Type         ProcessorEventType
	ProviderType string
	ObjectID     string
	Metadata     map[string]string
}

func (e *ProcessorEvent) BookingID() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[MetadataBookingID]
}
