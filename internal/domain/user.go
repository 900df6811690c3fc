package domain

// User is the slice of an account this service needs: where to reach the person and
// which payment processor account belongs to them.
type User struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	DisplayName        string `json:"display_name"`
	PushToken          string `json:"-"`
	ProcessorAccountID string `json:"-"`
}
