package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// Quote is the provider's trip estimate. The provider price is carried for
// auditing only; billing always uses the local fare table.
type Quote struct {
	DistanceKm    float64
	DurationMin   float64
	ProviderPrice float64
}

// CreateRideRequest is the dispatch order sent to the provider.
type CreateRideRequest struct {
	Origin         entity.Place
	Destination    entity.Place
	PassengerName  string
	PassengerPhone string
	Category       string
	PaymentMethod  string
}

// ProviderStatus is the provider's view of a ride, polled on demand.
type ProviderStatus struct {
	StatusCode int
	Driver     *entity.Driver
	EtaMin     int
}

// DispatchRepository is the external taxi-matching network client.
type DispatchRepository interface {
	Quote(ctx context.Context, origin, destination entity.Place, category string) (*Quote, error)
	CreateRide(ctx context.Context, req *CreateRideRequest) (string, error)
	CancelRide(ctx context.Context, providerRideID, reason string) error
	GetStatus(ctx context.Context, providerRideID string) (*ProviderStatus, error)
}
