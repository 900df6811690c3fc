package postgres

import (
	"context"
	"database/sql"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"
)

type webhookDeliveryRepository struct {
	db *sql.DB
}

func NewWebhookDeliveryRepository(db *sql.DB) repository.WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

func (r *webhookDeliveryRepository) Record(ctx context.Context, d *domain.WebhookDelivery) error {
	query := `INSERT INTO webhook_deliveries (event_id, event_type, booking_id, outcome, detail, received_at)
	          VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6) RETURNING id`
	return r.db.QueryRowContext(ctx, query, d.EventID, d.EventType, d.BookingID, d.Outcome, d.Detail, d.ReceivedAt).Scan(&d.ID)
}

func (r *webhookDeliveryRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.WebhookDelivery, error) {
	query := `SELECT id, event_id, event_type, COALESCE(booking_id, ''), outcome, detail, received_at
	          FROM webhook_deliveries WHERE booking_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.WebhookDelivery
	for rows.Next() {
		var d domain.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventType, &d.BookingID, &d.Outcome, &d.Detail, &d.ReceivedAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
