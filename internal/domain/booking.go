package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusReturned  BookingStatus = "returned"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDisputed  BookingStatus = "disputed"
)

// ParseBookingStatus validates a client supplied status string.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case BookingStatusPending, BookingStatusApproved, BookingStatusPaid, BookingStatusActive,
		BookingStatusReturned, BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, s)
}

// IsTerminal reports whether no further transition is permitted from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusDisputed
}

// rank orders the happy path; terminal side exits share the highest rank.
func (s BookingStatus) rank() int {
	switch s {
	case BookingStatusPending:
		return 0
	case BookingStatusApproved:
		return 1
	case BookingStatusPaid:
		return 2
	case BookingStatusActive:
		return 3
	case BookingStatusReturned:
		return 4
	default:
		return 5
	}
}

// ReservedStatuses are the statuses in which a booking holds the gear for its dates.
var ReservedStatuses = []BookingStatus{
	BookingStatusApproved,
	BookingStatusPaid,
	BookingStatusActive,
	BookingStatusReturned,
}

func (s BookingStatus) ReservesGear() bool {
	for _, r := range ReservedStatuses {
		if s == r {
			return true
		}
	}
	return false
}

type ActorRole string

const (
	ActorRenter ActorRole = "renter"
	ActorOwner  ActorRole = "owner"
	// ActorSystem is used by the webhook reconciler and scheduled jobs. It is never
	// derived from a client request.
	ActorSystem ActorRole = "system"
)

// StatusEntry is one element of a booking's append-only audit trail.
type StatusEntry struct {
	Status    BookingStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Note      string        `json:"note,omitempty"`
}

type Booking struct {
	ID             string        `json:"id"`
	GearID         string        `json:"gear_id"`
	RenterID       string        `json:"renter_id"`
	OwnerID        string        `json:"owner_id"`
	Status         BookingStatus `json:"status"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	Currency       string        `json:"currency"`
	DailyRateCents int64         `json:"daily_rate_cents"`

	// Amounts are fixed at creation time from the daily rate snapshot and the fee policy.
	TotalAmountCents  int64         `json:"total_amount_cents"`
	PlatformFeeCents  int64         `json:"platform_fee_cents"`
	RenterAmountCents int64         `json:"renter_amount_cents"`
	PaymentIntentID   string        `json:"payment_intent_id,omitempty"`
	TransferID        string        `json:"transfer_id,omitempty"`
	StatusHistory     []StatusEntry `json:"status_history"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// RoleOf derives the actor role of userID from the booking's own parties.
func (b *Booking) RoleOf(userID string) (ActorRole, bool) {
	switch userID {
	case "":
		return "", false
	case b.RenterID:
		return ActorRenter, true
	case b.OwnerID:
		return ActorOwner, true
	}
	return "", false
}

// Counterparty returns the other party of the booking.
func (b *Booking) Counterparty(userID string) (string, bool) {
	switch userID {
	case b.RenterID:
		return b.OwnerID, true
	case b.OwnerID:
		return b.RenterID, true
	}
	return "", false
}

// RenterFeeCents is the surcharge the renter pays on top of the rental cost.
func (b *Booking) RenterFeeCents() int64 {
	return b.RenterAmountCents - b.TotalAmountCents
}

// OwnerPayoutCents is what the owner receives once the owner's fee share is deducted.
func (b *Booking) OwnerPayoutCents() int64 {
	ownerFee := b.PlatformFeeCents - b.RenterFeeCents()
	return b.TotalAmountCents - ownerFee
}

// HasReached reports whether the booking is at or has passed through status s.
func (b *Booking) HasReached(s BookingStatus) bool {
	for _, e := range b.StatusHistory {
		if e.Status == s {
			return true
		}
	}
	return b.Status == s
}

// Clone returns a deep copy so callers can compute a new state without mutating the loaded one.
func (b *Booking) Clone() *Booking {
	c := *b
	c.StatusHistory = make([]StatusEntry, len(b.StatusHistory))
	copy(c.StatusHistory, b.StatusHistory)
	if b.PaidAt != nil {
		t := *b.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// transitions is the complete legal graph: from -> to -> allowed actors.
var transitions = map[BookingStatus]map[BookingStatus][]ActorRole{
	BookingStatusPending: {
		BookingStatusApproved:  {ActorOwner},
		BookingStatusCancelled: {ActorOwner, ActorRenter, ActorSystem},
	},
	BookingStatusApproved: {
		BookingStatusPaid:      {ActorRenter, ActorSystem},
		BookingStatusCancelled: {ActorOwner, ActorRenter, ActorSystem},
	},
	BookingStatusPaid: {
		BookingStatusActive: {ActorOwner},
	},
	BookingStatusActive: {
		BookingStatusReturned: {ActorRenter},
	},
	BookingStatusReturned: {
		BookingStatusCompleted: {ActorOwner},
		BookingStatusDisputed:  {ActorOwner, ActorRenter},
	},
}

// sourcesOf lists the states from which to can be reached, in happy-path order.
func sourcesOf(to BookingStatus) []BookingStatus {
	var out []BookingStatus
	for _, from := range []BookingStatus{BookingStatusPending, BookingStatusApproved, BookingStatusPaid, BookingStatusActive, BookingStatusReturned} {
		if _, ok := transitions[from][to]; ok {
			out = append(out, from)
		}
	}
	return out
}

var actionVerbs = map[BookingStatus]string{
	BookingStatusApproved:  "approve",
	BookingStatusPaid:      "pay for",
	BookingStatusActive:    "confirm pickup of",
	BookingStatusReturned:  "mark as returned",
	BookingStatusCompleted: "complete",
	BookingStatusCancelled: "cancel",
	BookingStatusDisputed:  "dispute",
}

// CheckTransition decides whether actor may move b to the requested status without
// building the new state. It is the single authority on transition legality.
func CheckTransition(b *Booking, to BookingStatus, actor ActorRole) error {
	from := b.Status
	edges, fromKnown := transitions[from]
	allowed, ok := edges[to]
	if !ok {
		if from.IsTerminal() || !fromKnown {
			return &TransitionError{
				Kind:   ErrAlreadyTerminal,
				From:   from,
				To:     to,
				Actor:  actor,
				Reason: fmt.Sprintf("booking is already %s", from),
			}
		}
		return &TransitionError{
			Kind:   ErrInvalidTransition,
			From:   from,
			To:     to,
			Actor:  actor,
			Reason: invalidReason(from, to),
		}
	}
	for _, a := range allowed {
		if a == actor {
			return nil
		}
	}
	return &TransitionError{
		Kind:   ErrUnauthorizedActor,
		From:   from,
		To:     to,
		Actor:  actor,
		Reason: unauthorizedReason(to, allowed),
	}
}

func invalidReason(from, to BookingStatus) string {
	sources := sourcesOf(to)
	if len(sources) == 0 {
		return fmt.Sprintf("a booking cannot be moved to %s", to)
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	required := strings.Join(names, " or ")
	if from.rank() > sources[len(sources)-1].rank() {
		return fmt.Sprintf("booking is no longer %s", required)
	}
	return fmt.Sprintf("booking must be %s first (it is %s)", required, from)
}

func unauthorizedReason(to BookingStatus, allowed []ActorRole) string {
	parties := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a != ActorSystem {
			parties = append(parties, "the "+string(a))
		}
	}
	verb := actionVerbs[to]
	if len(parties) == 0 {
		return fmt.Sprintf("only the platform can %s this booking", verb)
	}
	return fmt.Sprintf("only %s can %s this booking", strings.Join(parties, " or "), verb)
}

// AttemptTransition validates the move and returns the next state of the booking with
// exactly one new audit entry. It performs no I/O and never mutates b.
func AttemptTransition(b *Booking, to BookingStatus, actor ActorRole, note string, now time.Time) (*Booking, error) {
	if err := CheckTransition(b, to, actor); err != nil {
		return nil, err
	}
	next := b.Clone()
	next.Status = to
	next.UpdatedAt = now
	if to == BookingStatusPaid && next.PaidAt == nil {
		paidAt := now
		next.PaidAt = &paidAt
	}
	next.StatusHistory = append(next.StatusHistory, StatusEntry{
		Status:    to,
		Timestamp: now,
		Note:      note,
	})
	return next, nil
}

// NewBooking builds a pending booking with its first audit entry.
func NewBooking(id string, gear *Gear, renterID string, start, end time.Time, split FeeSplit, now time.Time) (*Booking, error) {
	if renterID == "" {
		return nil, fmt.Errorf("%w: renter is required", ErrInvalidInput)
	}
	if gear.OwnerID == renterID {
		return nil, fmt.Errorf("%w: owners cannot rent their own gear", ErrInvalidInput)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}
	if split.TotalCents <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive", ErrInvalidInput)
	}
	return &Booking{
		ID:                id,
		GearID:            gear.ID,
		RenterID:          renterID,
		OwnerID:           gear.OwnerID,
		Status:            BookingStatusPending,
		StartDate:         start,
		EndDate:           end,
		Currency:          gear.Currency,
		DailyRateCents:    gear.DailyRateCents,
		TotalAmountCents:  split.TotalCents,
		PlatformFeeCents:  split.PlatformFeeCents,
		RenterAmountCents: split.RenterAmountCents,
		StatusHistory: []StatusEntry{{
			Status:    BookingStatusPending,
			Timestamp: now,
			Note:      "booking requested",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
