package domain

// Gear is the read-only view of a listing owned by the listings service.
type Gear struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Title          string `json:"title"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Currency       string `json:"currency"`
}
