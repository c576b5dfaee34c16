package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContributionStatusEvent represents the message emitted by the payment
// processor integration for contribution settlement updates.
type ContributionStatusEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	ContributionID uuid.UUID `json:"contribution_id"`
	Status         string    `json:"status"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurred_at"`
}
