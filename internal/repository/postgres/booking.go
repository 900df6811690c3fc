package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/lib/pq"
)

const bookingColumns = `id, gear_id, renter_id, owner_id, status, start_date, end_date, currency, daily_rate_cents,
	total_amount_cents, platform_fee_cents, renter_amount_cents, COALESCE(payment_intent_id, ''),
	COALESCE(transfer_id, ''), paid_at, created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.GearID, &b.RenterID, &b.OwnerID, &b.Status, &b.StartDate, &b.EndDate, &b.Currency, &b.DailyRateCents,
		&b.TotalAmountCents, &b.PlatformFeeCents, &b.RenterAmountCents, &b.PaymentIntentID,
		&b.TransferID, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking, msg *domain.Message) error {
	logger.EnterMethod("bookingRepository.Create", "bookingID", b.ID, "gearID", b.GearID, "renterID", b.RenterID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err, "reason", "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (
			id, gear_id, renter_id, owner_id, status, start_date, end_date, currency, daily_rate_cents,
			total_amount_cents, platform_fee_cents, renter_amount_cents, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	logger.DatabaseCall("INSERT", "bookings", "bookingID", b.ID)
	_, err = tx.ExecContext(ctx, query,
		b.ID, b.GearID, b.RenterID, b.OwnerID, b.Status, b.StartDate, b.EndDate, b.Currency, b.DailyRateCents,
		b.TotalAmountCents, b.PlatformFeeCents, b.RenterAmountCents, b.CreatedAt, b.UpdatedAt,
	)
	logger.DatabaseResult("INSERT", 1, err, "bookingID", b.ID)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err, "bookingID", b.ID)
		return mapError(err)
	}

	for _, entry := range b.StatusHistory {
		if err := insertHistory(ctx, tx, b.ID, entry); err != nil {
			logger.ExitMethodWithError("bookingRepository.Create", err, "reason", "failed to insert history")
			return err
		}
	}
	if msg != nil {
		if err := insertMessage(ctx, tx, msg); err != nil {
			logger.ExitMethodWithError("bookingRepository.Create", err, "reason", "failed to insert system message")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err, "reason", "failed to commit")
		return err
	}
	logger.ExitMethod("bookingRepository.Create", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	history, err := r.loadHistory(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.StatusHistory = history[b.ID]
	return b, nil
}

func (r *bookingRepository) ConditionalSave(ctx context.Context, b *domain.Booking, expected domain.BookingStatus, msg *domain.Message) error {
	logger.EnterMethod("bookingRepository.ConditionalSave", "bookingID", b.ID, "expected", expected, "status", b.Status)
	if len(b.StatusHistory) == 0 || b.StatusHistory[len(b.StatusHistory)-1].Status != b.Status {
		return fmt.Errorf("booking %s: last history entry does not match status %s", b.ID, b.Status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.ConditionalSave", err, "reason", "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	query := `UPDATE bookings SET status = $1, paid_at = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", b.ID, "expected", expected)
	result, err := tx.ExecContext(ctx, query, b.Status, b.PaidAt, b.UpdatedAt, b.ID, expected)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "bookingID", b.ID)
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "bookingID", b.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.ExitMethod("bookingRepository.ConditionalSave", "bookingID", b.ID, "result", "stale")
		return fmt.Errorf("booking %s is no longer %s: %w", b.ID, expected, domain.ErrStaleState)
	}

	if err := insertHistory(ctx, tx, b.ID, b.StatusHistory[len(b.StatusHistory)-1]); err != nil {
		logger.ExitMethodWithError("bookingRepository.ConditionalSave", err, "reason", "failed to insert history")
		return err
	}
	if msg != nil {
		if err := insertMessage(ctx, tx, msg); err != nil {
			logger.ExitMethodWithError("bookingRepository.ConditionalSave", err, "reason", "failed to insert system message")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("bookingRepository.ConditionalSave", err, "reason", "failed to commit")
		return err
	}
	logger.ExitMethod("bookingRepository.ConditionalSave", "bookingID", b.ID, "status", b.Status)
	return nil
}

func (r *bookingRepository) AttachPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error {
	query := `UPDATE bookings SET payment_intent_id = $1, updated_at = $2
	          WHERE id = $3 AND status = 'approved' AND payment_intent_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, paymentIntentID, time.Now(), bookingID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Nothing was updated: work out whether this is a retry or a conflict.
	var status domain.BookingStatus
	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status, COALESCE(payment_intent_id, '') FROM bookings WHERE id = $1`, bookingID).Scan(&status, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
		}
		return err
	}
	switch {
	case current == paymentIntentID:
		return nil
	case current != "":
		return fmt.Errorf("booking %s already has hold %s: %w", bookingID, current, domain.ErrHoldAlreadyAttached)
	default:
		return fmt.Errorf("booking %s is %s, not approved: %w", bookingID, status, domain.ErrStaleState)
	}
}

func (r *bookingRepository) RecordTransfer(ctx context.Context, bookingID, transferID string) error {
	query := `UPDATE bookings SET transfer_id = $1, updated_at = $2
	          WHERE id = $3 AND transfer_id IS NULL AND payment_intent_id IS NOT NULL AND paid_at IS NOT NULL`
	result, err := r.db.ExecContext(ctx, query, transferID, time.Now(), bookingID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT COALESCE(transfer_id, '') FROM bookings WHERE id = $1`, bookingID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
		}
		return err
	}
	switch {
	case current == transferID:
		return nil
	case current != "":
		return fmt.Errorf("booking %s already has transfer %s: %w", bookingID, current, domain.ErrTransferAlreadyRecorded)
	default:
		return fmt.Errorf("booking %s has not been paid: %w", bookingID, domain.ErrPaymentNotComplete)
	}
}

func (r *bookingRepository) ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listByParty(ctx, "renter_id", renterID, status, page, pageSize)
}

func (r *bookingRepository) ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listByParty(ctx, "owner_id", ownerID, status, page, pageSize)
}

// listByParty is only ever called with a fixed column name
func (r *bookingRepository) listByParty(ctx context.Context, column, userID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	offset := (page - 1) * pageSize
	where := ` FROM bookings WHERE ` + column + ` = $1`

	args := []interface{}{userID}
	argIdx := 2
	if status != "" {
		where += " AND status = $2"
		args = append(args, status)
		argIdx++
	}

	var count int32
	err := r.db.QueryRowContext(ctx, "SELECT count(*)"+where, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT " + bookingColumns + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	bookings, err := r.queryBookings(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, count, nil
}

func (r *bookingRepository) ListStale(ctx context.Context, status domain.BookingStatus, updatedBefore time.Time, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3`
	return r.queryBookings(ctx, query, status, updatedBefore, limit)
}

func (r *bookingRepository) ListAwaitingPayout(ctx context.Context, paidBefore time.Time, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE paid_at IS NOT NULL AND paid_at < $1 AND transfer_id IS NULL AND payment_intent_id IS NOT NULL
	          ORDER BY paid_at LIMIT $2`
	return r.queryBookings(ctx, query, paidBefore, limit)
}

func (r *bookingRepository) HasOverlap(ctx context.Context, gearID string, start, end time.Time) (bool, error) {
	statuses := make([]string, len(domain.ReservedStatuses))
	for i, s := range domain.ReservedStatuses {
		statuses[i] = string(s)
	}

	query := `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE gear_id = $1 AND status = ANY($2) AND start_date < $4 AND end_date > $3
	)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, gearID, pq.Array(statuses), start, end).Scan(&exists)
	return exists, err
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	var ids []string
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return bookings, nil
	}

	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].StatusHistory = history[bookings[i].ID]
	}
	return bookings, nil
}

func (r *bookingRepository) loadHistory(ctx context.Context, bookingIDs []string) (map[string][]domain.StatusEntry, error) {
	query := `SELECT booking_id, status, note, created_at FROM booking_status_history
	          WHERE booking_id = ANY($1) ORDER BY booking_id, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(bookingIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string][]domain.StatusEntry, len(bookingIDs))
	for rows.Next() {
		var bookingID string
		var e domain.StatusEntry
		if err := rows.Scan(&bookingID, &e.Status, &e.Note, &e.Timestamp); err != nil {
			return nil, err
		}
		history[bookingID] = append(history[bookingID], e)
	}
	return history, rows.Err()
}

func insertHistory(ctx context.Context, tx *sql.Tx, bookingID string, e domain.StatusEntry) error {
	query := `INSERT INTO booking_status_history (booking_id, status, note, created_at) VALUES ($1, $2, $3, $4)`
	_, err := tx.ExecContext(ctx, query, bookingID, e.Status, e.Note, e.Timestamp)
	return err
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	query := `INSERT INTO messages (id, booking_id, sender_id, body, message_type, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query, m.ID, m.BookingID, m.SenderID, m.Body, m.MessageType, m.CreatedAt)
	return err
}
