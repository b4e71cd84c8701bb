package entity

import (
	"time"
)

// Conversation states. The booking dialogue is linear with a fallback
// sub-path for manual origin entry and a recoverable error state.
const (
	StateGreeting             = "GREETING"
	StateRequestingLocation   = "REQUESTING_LOCATION"
	StateConfirmingOrigin     = "CONFIRMING_ORIGIN"
	StateAwaitingOrigin       = "AWAITING_ORIGIN"
	StateAwaitingDestination  = "AWAITING_DESTINATION"
	StateAwaitingCategory     = "AWAITING_CATEGORY"
	StateAwaitingConfirmation = "AWAITING_CONFIRMATION"
	StateCreatingRide         = "CREATING_RIDE"
	StateRideCreated          = "RIDE_CREATED"
	StateRideInProgress       = "RIDE_IN_PROGRESS"
	StateError                = "ERROR"
)

// ContextVersion is the current serialization version of Context. Blobs
// without a version field are treated as v0 and upgraded on load.
const ContextVersion = 1

// Conversation is one active booking session for a customer. At most one
// active conversation exists per customer; an idle conversation is
// deactivated and a fresh one is created on the next inbound message.
type Conversation struct {
	ID            string    `bson:"_id,omitempty"`
	CustomerID    string    `bson:"customerId"`
	Phone         string    `bson:"phone"`
	State         string    `bson:"state"`
	IsActive      bool      `bson:"isActive"`
	LastMessageAt time.Time `bson:"lastMessageAt"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// Place is an address with optional coordinates.
type Place struct {
	Address      string   `json:"address"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	AutoDetected bool     `json:"autoDetected,omitempty"`
}

// Context is the mutable booking draft attached to a conversation. It is
// overwritten whole on every transition and only fully validated right
// before dispatch.
type Context struct {
	Version               int        `json:"version"`
	Origin                *Place     `json:"origin,omitempty"`
	Destination           *Place     `json:"destination,omitempty"`
	Category              string     `json:"category,omitempty"`
	EstimatedPrice        float64    `json:"estimatedPrice,omitempty"`
	EstimatedDistanceKm   float64    `json:"estimatedDistanceKm,omitempty"`
	EstimatedDurationMin  float64    `json:"estimatedDurationMin,omitempty"`
	FlowStarted           bool       `json:"flowStarted,omitempty"`
	LocationRequestSentAt *time.Time `json:"locationRequestSentAt,omitempty"`
}

// ReadyForDispatch reports whether the draft carries everything the create
// path requires: both addresses and a positive price.
func (c *Context) ReadyForDispatch() bool {
	if c == nil || c.Origin == nil || c.Destination == nil {
		return false
	}
	return c.Origin.Address != "" && c.Destination.Address != "" && c.EstimatedPrice > 0
}
