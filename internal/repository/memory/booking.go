package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gearshare-backend/internal/domain"
)

type bookingRepository struct {
	db *DB
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking, msg *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	if b.Status.ReservesGear() && r.overlapsLocked(b.ID, b.GearID, b.StartDate, b.EndDate) {
		return fmt.Errorf("gear %s: %w", b.GearID, domain.ErrGearUnavailable)
	}
	r.db.bookings[b.ID] = b.Clone()
	if msg != nil {
		r.db.messages[b.ID] = append(r.db.messages[b.ID], *msg)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return b.Clone(), nil
}

func (r *bookingRepository) ConditionalSave(ctx context.Context, b *domain.Booking, expected domain.BookingStatus, msg *domain.Message) error {
	if len(b.StatusHistory) == 0 || b.StatusHistory[len(b.StatusHistory)-1].Status != b.Status {
		return fmt.Errorf("booking %s: last history entry does not match status %s", b.ID, b.Status)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("booking %s is no longer %s: %w", b.ID, expected, domain.ErrStaleState)
	}
	if b.Status.ReservesGear() && !stored.Status.ReservesGear() &&
		r.overlapsLocked(b.ID, stored.GearID, stored.StartDate, stored.EndDate) {
		return fmt.Errorf("gear %s: %w", stored.GearID, domain.ErrGearUnavailable)
	}

	next := stored.Clone()
	next.Status = b.Status
	next.PaidAt = b.PaidAt
	next.UpdatedAt = b.UpdatedAt
	next.StatusHistory = append(next.StatusHistory, b.StatusHistory[len(b.StatusHistory)-1])
	r.db.bookings[b.ID] = next

	if msg != nil {
		r.db.messages[b.ID] = append(r.db.messages[b.ID], *msg)
	}
	return nil
}

func (r *bookingRepository) AttachPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
	}
	switch {
	case b.PaymentIntentID == paymentIntentID:
		return nil
	case b.PaymentIntentID != "":
		return fmt.Errorf("booking %s already has hold %s: %w", bookingID, b.PaymentIntentID, domain.ErrHoldAlreadyAttached)
	case b.Status != domain.BookingStatusApproved:
		return fmt.Errorf("booking %s is %s, not approved: %w", bookingID, b.Status, domain.ErrStaleState)
	}
	b.PaymentIntentID = paymentIntentID
	b.UpdatedAt = time.Now()
	return nil
}

func (r *bookingRepository) RecordTransfer(ctx context.Context, bookingID, transferID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
	}
	switch {
	case b.TransferID == transferID:
		return nil
	case b.TransferID != "":
		return fmt.Errorf("booking %s already has transfer %s: %w", bookingID, b.TransferID, domain.ErrTransferAlreadyRecorded)
	case b.PaymentIntentID == "" || b.PaidAt == nil:
		return fmt.Errorf("booking %s has not been paid: %w", bookingID, domain.ErrPaymentNotComplete)
	}
	b.TransferID = transferID
	b.UpdatedAt = time.Now()
	return nil
}

func (r *bookingRepository) ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(func(b *domain.Booking) bool {
		return b.RenterID == renterID && (status == "" || string(b.Status) == status)
	}, page, pageSize)
}

func (r *bookingRepository) ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(func(b *domain.Booking) bool {
		return b.OwnerID == ownerID && (status == "" || string(b.Status) == status)
	}, page, pageSize)
}

func (r *bookingRepository) list(match func(*domain.Booking) bool, page, pageSize int32) ([]domain.Booking, int32, error) {
	out := r.collect(match)
	sortBookingsNewestFirst(out)
	return paginate(out, pageSize, (page-1)*pageSize), int32(len(out)), nil
}

func (r *bookingRepository) collect(match func(*domain.Booking) bool) []domain.Booking {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Booking
	for _, b := range r.db.bookings {
		if match(b) {
			out = append(out, *b.Clone())
		}
	}
	return out
}

// ListStale returns the longest-untouched bookings first so a batch limit never starves them.
func (r *bookingRepository) ListStale(ctx context.Context, status domain.BookingStatus, updatedBefore time.Time, limit int32) ([]domain.Booking, error) {
	out := r.collect(func(b *domain.Booking) bool {
		return b.Status == status && b.UpdatedAt.Before(updatedBefore)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return paginate(out, limit, 0), nil
}

func (r *bookingRepository) ListAwaitingPayout(ctx context.Context, paidBefore time.Time, limit int32) ([]domain.Booking, error) {
	out := r.collect(func(b *domain.Booking) bool {
		return b.PaidAt != nil && b.PaidAt.Before(paidBefore) && b.TransferID == "" && b.PaymentIntentID != ""
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaidAt.Before(*out[j].PaidAt)
	})
	return paginate(out, limit, 0), nil
}

func (r *bookingRepository) HasOverlap(ctx context.Context, gearID string, start, end time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.overlapsLocked("", gearID, start, end), nil
}

func (r *bookingRepository) overlapsLocked(exceptID, gearID string, start, end time.Time) bool {
	for _, b := range r.db.bookings {
		if b.ID == exceptID || b.GearID != gearID || !b.Status.ReservesGear() {
			continue
		}
		if b.StartDate.Before(end) && b.EndDate.After(start) {
			return true
		}
	}
	return false
}
