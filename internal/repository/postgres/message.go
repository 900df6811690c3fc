package postgres

import (
	"context"
	"database/sql"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) error {
	query := `INSERT INTO messages (id, booking_id, sender_id, body, message_type, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	logger.DatabaseCall("INSERT", "messages", "bookingID", m.BookingID, "type", m.MessageType)
	_, err := r.db.ExecContext(ctx, query, m.ID, m.BookingID, m.SenderID, m.Body, m.MessageType, m.CreatedAt)
	logger.DatabaseResult("INSERT", 1, err, "messageID", m.ID)
	return err
}

func (r *messageRepository) ListByBooking(ctx context.Context, bookingID string, limit, offset int32) ([]domain.Message, int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM messages WHERE booking_id = $1`, bookingID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, booking_id, sender_id, body, message_type, created_at
	          FROM messages WHERE booking_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, bookingID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.BookingID, &m.SenderID, &m.Body, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}
	return messages, count, rows.Err()
}
