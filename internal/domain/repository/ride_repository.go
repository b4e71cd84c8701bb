package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// RideRepository defines persistence for the authoritative booking records.
type RideRepository interface {
	Create(ctx context.Context, ride *entity.Ride) error
	FindByID(ctx context.Context, id string) (*entity.Ride, error)
	FindByProviderRideID(ctx context.Context, providerRideID string) (*entity.Ride, error)
	FindActiveByConversation(ctx context.Context, conversationID string) (*entity.Ride, error)
	Update(ctx context.Context, ride *entity.Ride) error
}

// RideEventRepository is the append-only audit trail for rides.
type RideEventRepository interface {
	Append(ctx context.Context, event *entity.RideEvent) error
}
