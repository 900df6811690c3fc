package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gearshare-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "gear_id", "renter_id", "owner_id", "status", "start_date", "end_date", "currency", "daily_rate_cents",
	"total_amount_cents", "platform_fee_cents", "renter_amount_cents", "payment_intent_id",
	"transfer_id", "paid_at", "created_at", "updated_at",
}

func approvedBooking(now time.Time) *domain.Booking {
	return &domain.Booking{
		ID:                "b1",
		GearID:            "g1",
		RenterID:          "r1",
		OwnerID:           "o1",
		Status:            domain.BookingStatusApproved,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, 2),
		Currency:          "usd",
		DailyRateCents:    50,
		TotalAmountCents:  100,
		PlatformFeeCents:  10,
		RenterAmountCents: 105,
		StatusHistory: []domain.StatusEntry{
			{Status: domain.BookingStatusPending, Timestamp: now},
			{Status: domain.BookingStatusApproved, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	now := time.Now()
	b := approvedBooking(now)
	b.Status = domain.BookingStatusPending
	b.StatusHistory = b.StatusHistory[:1]
	msg := domain.NewSystemMessage("m1", b.ID, b.StatusHistory[0])

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(b.ID, b.GearID, b.RenterID, b.OwnerID, b.Status, b.StartDate, b.EndDate, b.Currency, b.DailyRateCents,
			b.TotalAmountCents, b.PlatformFeeCents, b.RenterAmountCents, b.CreatedAt, b.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO booking_status_history").
		WithArgs(b.ID, domain.BookingStatusPending, "", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs("m1", b.ID, nil, msg.Body, domain.MessageTypeSystem, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Create(context.Background(), b, msg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ConditionalSave(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		b := approvedBooking(now)
		msg := domain.NewSystemMessage("m2", b.ID, b.StatusHistory[1])

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(domain.BookingStatusApproved, sqlmock.AnyArg(), now, "b1", domain.BookingStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO booking_status_history").
			WithArgs("b1", domain.BookingStatusApproved, "", now).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("INSERT INTO messages").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.ConditionalSave(ctx, b, domain.BookingStatusPending, msg)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale state", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bookings SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.ConditionalSave(ctx, approvedBooking(now), domain.BookingStatusPending, nil)
		assert.ErrorIs(t, err, domain.ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Overlapping reservation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bookings SET status").
			WillReturnError(&pq.Error{Code: "23P01", Constraint: "bookings_no_overlap"})
		mock.ExpectRollback()

		err = repo.ConditionalSave(ctx, approvedBooking(now), domain.BookingStatusPending, nil)
		assert.ErrorIs(t, err, domain.ErrGearUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("History out of sync", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		b := approvedBooking(now)
		b.StatusHistory = b.StatusHistory[:1]
		err = repo.ConditionalSave(ctx, b, domain.BookingStatusPending, nil)
		assert.Error(t, err)
	})
}

func TestBookingRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).
				AddRow("b1", "g1", "r1", "o1", "paid", now, now.AddDate(0, 0, 2), "usd", 50,
					100, 10, 105, "pi_1", "", now, now, now))
		mock.ExpectQuery("FROM booking_status_history").
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"booking_id", "status", "note", "created_at"}).
				AddRow("b1", "pending", "booking requested", now).
				AddRow("b1", "approved", "", now).
				AddRow("b1", "paid", "payment confirmed", now))

		b, err := repo.GetByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPaid, b.Status)
		assert.Equal(t, "pi_1", b.PaymentIntentID)
		assert.Empty(t, b.TransferID)
		require.NotNil(t, b.PaidAt)
		require.Len(t, b.StatusHistory, 3)
		assert.Equal(t, domain.BookingStatusPaid, b.StatusHistory[2].Status)
		assert.Equal(t, "payment confirmed", b.StatusHistory[2].Note)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookingRepository_AttachPaymentIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("Attached", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET payment_intent_id").
			WithArgs("pi_1", sqlmock.AnyArg(), "b1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.AttachPaymentIntent(ctx, "b1", "pi_1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retry with same hold", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET payment_intent_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status, COALESCE\\(payment_intent_id, ''\\) FROM bookings").
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows([]string{"status", "payment_intent_id"}).AddRow("approved", "pi_1"))

		assert.NoError(t, repo.AttachPaymentIntent(ctx, "b1", "pi_1"))
	})

	t.Run("Different hold already attached", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET payment_intent_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status, COALESCE\\(payment_intent_id, ''\\) FROM bookings").
			WillReturnRows(sqlmock.NewRows([]string{"status", "payment_intent_id"}).AddRow("approved", "pi_0"))

		err = repo.AttachPaymentIntent(ctx, "b1", "pi_1")
		assert.ErrorIs(t, err, domain.ErrHoldAlreadyAttached)
	})

	t.Run("Booking no longer approved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET payment_intent_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status, COALESCE\\(payment_intent_id, ''\\) FROM bookings").
			WillReturnRows(sqlmock.NewRows([]string{"status", "payment_intent_id"}).AddRow("cancelled", ""))

		err = repo.AttachPaymentIntent(ctx, "b1", "pi_1")
		assert.ErrorIs(t, err, domain.ErrStaleState)
	})
}

func TestBookingRepository_RecordTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("Recorded", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET transfer_id").
			WithArgs("tr_1", sqlmock.AnyArg(), "b1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.RecordTransfer(ctx, "b1", "tr_1"))
	})

	t.Run("Duplicate is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET transfer_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COALESCE\\(transfer_id, ''\\) FROM bookings").
			WillReturnRows(sqlmock.NewRows([]string{"transfer_id"}).AddRow("tr_1"))

		assert.NoError(t, repo.RecordTransfer(ctx, "b1", "tr_1"))
	})

	t.Run("Second transfer rejected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewBookingRepository(db)

		mock.ExpectExec("UPDATE bookings SET transfer_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COALESCE\\(transfer_id, ''\\) FROM bookings").
			WillReturnRows(sqlmock.NewRows([]string{"transfer_id"}).AddRow("tr_1"))

		err = repo.RecordTransfer(ctx, "b1", "tr_2")
		assert.ErrorIs(t, err, domain.ErrTransferAlreadyRecorded)
	})
}

func TestBookingRepository_ListByRenter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM bookings WHERE renter_id = \\$1 AND status = \\$2").
		WithArgs("r1", "approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE renter_id = \\$1 AND status = \\$2 ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs("r1", "approved", int32(10), int32(0)).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow("b1", "g1", "r1", "o1", "approved", now, now.AddDate(0, 0, 2), "usd", 50,
				100, 10, 105, "", "", nil, now, now))
	mock.ExpectQuery("FROM booking_status_history").
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "status", "note", "created_at"}).
			AddRow("b1", "pending", "", now).
			AddRow("b1", "approved", "", now))

	bookings, count, err := repo.ListByRenter(context.Background(), "r1", "approved", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), count)
	require.Len(t, bookings, 1)
	assert.Nil(t, bookings[0].PaidAt)
	assert.Len(t, bookings[0].StatusHistory, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_HasOverlap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepository(db)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("g1", sqlmock.AnyArg(), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	overlap, err := repo.HasOverlap(context.Background(), "g1", start, end)
	assert.NoError(t, err)
	assert.True(t, overlap)
}
