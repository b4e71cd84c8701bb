package usecase

import (
	"context"
	"math"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// Fallback trip estimate used when the provider quote call fails. Pricing
// must still produce a fare so the dialogue never stalls on a provider
// outage.
const (
	FallbackDistanceKm  = 5.0
	FallbackDurationMin = 15.0
)

// DefaultRates is the built-in fare table, used when the reference database
// has no rows or is unreachable at startup.
func DefaultRates() map[string]entity.VehicleRate {
	return map[string]entity.VehicleRate{
		entity.CategoryCarroPequeno: {
			Category:      entity.CategoryCarroPequeno,
			Label:         entity.CategoryLabel(entity.CategoryCarroPequeno),
			BaseFare:      5.00,
			PerKmRate:     2.00,
			PerMinuteRate: 0.35,
			MinimumFare:   9.00,
		},
		entity.CategoryCarroGrande: {
			Category:      entity.CategoryCarroGrande,
			Label:         entity.CategoryLabel(entity.CategoryCarroGrande),
			BaseFare:      7.00,
			PerKmRate:     2.50,
			PerMinuteRate: 0.45,
			MinimumFare:   12.00,
		},
		entity.CategoryMoto: {
			Category:      entity.CategoryMoto,
			Label:         entity.CategoryLabel(entity.CategoryMoto),
			BaseFare:      3.00,
			PerKmRate:     1.50,
			PerMinuteRate: 0.25,
			MinimumFare:   6.00,
		},
	}
}

// LoadRates reads the fare table from the reference database, overlaying
// rows on the built-in defaults. A nil repo or a read failure keeps the
// defaults so the service always starts with a usable table.
func LoadRates(ctx context.Context, repo repository.RateRepository, log logger.Logger) map[string]entity.VehicleRate {
	rates := DefaultRates()
	if repo == nil {
		return rates
	}
	rows, err := repo.GetAll(ctx)
	if err != nil {
		log.Warn("Failed to load fare table, using built-in rates", "error", err)
		return rates
	}
	for _, row := range rows {
		rates[row.Category] = row
	}
	return rates
}

// Estimate computes the fare for a trip. Pure: same inputs, same fare. The
// provider's own quoted price is never an input here; only its
// distance/duration estimate is trusted, since provider pricing may carry
// surge logic the operator does not pass on to customers.
func Estimate(rates map[string]entity.VehicleRate, category string, distanceKm, durationMin float64) float64 {
	rate, ok := rates[category]
	if !ok {
		rate = rates[entity.DefaultCategory]
	}
	if distanceKm < 0 {
		distanceKm = 0
	}
	if durationMin < 0 {
		durationMin = 0
	}
	price := rate.BaseFare + distanceKm*rate.PerKmRate + durationMin*rate.PerMinuteRate
	if price < rate.MinimumFare {
		price = rate.MinimumFare
	}
	return math.Round(price*100) / 100
}
