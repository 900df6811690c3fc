package domain

import "time"

// Ratings are on a 1 to 5 scale; the detailed ratings are optional.
type Ratings struct {
	Overall       int    `json:"overall"`
	Communication int    `json:"communication,omitempty"`
	Accuracy      int    `json:"accuracy,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Ratings    Ratings   `json:"ratings"`
	CreatedAt  time.Time `json:"created_at"`
}
