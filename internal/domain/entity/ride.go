package entity

import (
	"time"
)

// Ride status constants. Transitions are driven only by provider callbacks
// or explicit cancellation; the coordinator never guesses a status.
const (
	RideStatusDistributing    = "DISTRIBUTING"
	RideStatusAwaitingAccept  = "AWAITING_ACCEPT"
	RideStatusPending         = "PENDING"
	RideStatusNoDriver        = "NO_DRIVER"
	RideStatusAccepted        = "ACCEPTED"
	RideStatusDriverArriving  = "DRIVER_ARRIVING"
	RideStatusDriverArrived   = "DRIVER_ARRIVED"
	RideStatusInProgress      = "IN_PROGRESS"
	RideStatusCompleted       = "COMPLETED"
	RideStatusCancelled       = "CANCELLED"
	RideStatusAwaitingPayment = "AWAITING_PAYMENT"
	RideStatusFailed          = "FAILED"
)

// statusRank orders statuses along the ride lifecycle so callbacks arriving
// out of order cannot regress a ride. Terminal states rank highest.
var statusRank = map[string]int{
	RideStatusDistributing:    1,
	RideStatusAwaitingAccept:  2,
	RideStatusPending:         3,
	RideStatusNoDriver:        4,
	RideStatusAccepted:        5,
	RideStatusDriverArriving:  6,
	RideStatusDriverArrived:   7,
	RideStatusInProgress:      8,
	RideStatusAwaitingPayment: 9,
	RideStatusCompleted:       10,
	RideStatusCancelled:       10,
	RideStatusFailed:          10,
}

// IsTerminalStatus reports whether no further transition is accepted.
func IsTerminalStatus(status string) bool {
	switch status {
	case RideStatusCompleted, RideStatusCancelled, RideStatusFailed:
		return true
	}
	return false
}

// CanTransitionStatus validates a ride status transition. Same-status
// updates are idempotent; terminal states are final; a lower-ranked status
// never overwrites a higher-ranked one.
func CanTransitionStatus(from, to string) bool {
	if from == to {
		return true
	}
	if IsTerminalStatus(from) {
		return false
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Driver holds the assignment details pushed by the dispatch provider.
type Driver struct {
	Name         string  `bson:"name,omitempty" json:"name,omitempty"`
	Phone        string  `bson:"phone,omitempty" json:"phone,omitempty"`
	VehicleModel string  `bson:"vehicleModel,omitempty" json:"vehicleModel,omitempty"`
	VehiclePlate string  `bson:"vehiclePlate,omitempty" json:"vehiclePlate,omitempty"`
	Rating       float64 `bson:"rating,omitempty" json:"rating,omitempty"`
}

// Ride is the durable, authoritative booking record. Created exactly once,
// at dispatch time, after explicit customer confirmation.
type Ride struct {
	ID                   string     `bson:"_id,omitempty"`
	ConversationID       string     `bson:"conversationId"`
	CustomerID           string     `bson:"customerId"`
	Phone                string     `bson:"phone"`
	Origin               Place      `bson:"origin"`
	Destination          Place      `bson:"destination"`
	Category             string     `bson:"category"`
	PaymentMethod        string     `bson:"paymentMethod"`
	EstimatedPrice       float64    `bson:"estimatedPrice"`
	EstimatedDistanceKm  float64    `bson:"estimatedDistanceKm"`
	EstimatedDurationMin float64    `bson:"estimatedDurationMin"`
	Status               string     `bson:"status"`
	ProviderRideID       string     `bson:"providerRideId,omitempty"`
	Driver               *Driver    `bson:"driver,omitempty"`
	AcceptedAt           *time.Time `bson:"acceptedAt,omitempty"`
	StartedAt            *time.Time `bson:"startedAt,omitempty"`
	CompletedAt          *time.Time `bson:"completedAt,omitempty"`
	CancelledAt          *time.Time `bson:"cancelledAt,omitempty"`
	CreatedAt            time.Time  `bson:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt"`
}

// ShortCode returns the human-readable booking code shown to the customer.
func (r *Ride) ShortCode() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}
