package entity

import (
	"time"
)

// RideEvent severities.
const (
	EventInfo    = "INFO"
	EventWarning = "WARNING"
	EventError   = "ERROR"
)

// RideEvent is one append-only audit trail entry tied to a ride. Internal
// error detail lives here and in logs, never in chat.
type RideEvent struct {
	ID          string                 `bson:"_id,omitempty"`
	RideID      string                 `bson:"rideId"`
	Severity    string                 `bson:"severity"`
	Title       string                 `bson:"title"`
	Description string                 `bson:"description,omitempty"`
	Metadata    map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt"`
}
