package entity

import (
	"time"
)

// Customer is the identity anchor for a chat user, keyed by phone number.
// Created on first contact; the only mutation is backfilling a missing name
// from the channel profile.
type Customer struct {
	ID        string    `bson:"_id,omitempty"`
	Phone     string    `bson:"phone"`
	Name      string    `bson:"name,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}
