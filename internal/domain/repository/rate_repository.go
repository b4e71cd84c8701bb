package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// RateRepository serves the fare table reference data.
type RateRepository interface {
	GetAll(ctx context.Context) ([]entity.VehicleRate, error)
}
