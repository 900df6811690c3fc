package domain

import "time"

type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeOrphan    WebhookOutcome = "orphan"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeRetry     WebhookOutcome = "retry"
)

// WebhookDelivery is the audit row written for every verified processor event.
type WebhookDelivery struct {
	ID         int64
	EventID    string
	EventType  string
	BookingID  string
	Outcome    WebhookOutcome
	Detail     string
	ReceivedAt time.Time
}
