package domain

import "time"

// Notification is an in-app notice delivered to one user about one booking.
type Notification struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	BookingID  string            `json:"booking_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}
