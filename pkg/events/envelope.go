package events

import (
	"time"
)

// Meta identifies one published event.
type Meta struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlationId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Envelope is the wire shape of every back-office event.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Event types published on the ride lifecycle stream.
const (
	TypeRideCreated   = "ride.created"
	TypeRideUpdated   = "ride.updated"
	TypeRideCancelled = "ride.cancelled"
	TypeRideFailed    = "ride.failed"
)
