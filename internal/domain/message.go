package domain

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

type Message struct {
	ID          string      `json:"id"`
	BookingID   string      `json:"booking_id"`
	SenderID    *string     `json:"sender_id"` // nil for system messages
	Body        string      `json:"body"`
	MessageType MessageType `json:"message_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (m *Message) IsSystem() bool {
	return m.MessageType == MessageTypeSystem
}

var statusAnnouncements = map[BookingStatus]string{
	BookingStatusPending:   "Booking requested. Waiting for the owner to respond.",
	BookingStatusApproved:  "The owner approved this booking. The renter can now pay.",
	BookingStatusPaid:      "Payment received. The booking is confirmed.",
	BookingStatusActive:    "Pickup confirmed. The rental is now active.",
	BookingStatusReturned:  "The renter marked the gear as returned.",
	BookingStatusCompleted: "The rental is complete. You can now leave a review.",
	BookingStatusCancelled: "This booking was cancelled.",
	BookingStatusDisputed:  "A dispute was opened for this booking. Our team will follow up.",
}

// NewSystemMessage renders the audit entry of a transition in user-facing language.
func NewSystemMessage(id string, bookingID string, entry StatusEntry) *Message {
	body := statusAnnouncements[entry.Status]
	if entry.Note != "" {
		body += " Note: " + entry.Note
	}
	return &Message{
		ID:          id,
		BookingID:   bookingID,
		Body:        body,
		MessageType: MessageTypeSystem,
		CreatedAt:   entry.Timestamp,
	}
}
