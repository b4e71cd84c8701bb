package repository

import (
	"context"
)

// GeocoderRepository resolves GPS coordinates to a human-readable address.
type GeocoderRepository interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
