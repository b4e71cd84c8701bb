package repository

import (
	"context"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormRateRepository implements the RateRepository interface
type GormRateRepository struct {
	db *gorm.DB
}

// NewGormRateRepository creates a new GORM fare table repository
func NewGormRateRepository(db *gorm.DB) repository.RateRepository {
	return &GormRateRepository{
		db: db,
	}
}

// VehicleRates GORM model for database mapping
type VehicleRates struct {
	ID            uint    `gorm:"primaryKey"`
	Category      string  `gorm:"column:category;unique"`
	Label         string  `gorm:"column:label"`
	BaseFare      float64 `gorm:"column:base_fare"`
	PerKmRate     float64 `gorm:"column:per_km_rate"`
	PerMinuteRate float64 `gorm:"column:per_minute_rate"`
	MinimumFare   float64 `gorm:"column:minimum_fare"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the default table name
func (VehicleRates) TableName() string {
	return "m_vehicle_rates"
}

// GetAll returns every fare table row
func (r *GormRateRepository) GetAll(ctx context.Context) ([]entity.VehicleRate, error) {
	var rows []VehicleRates
	result := r.db.WithContext(ctx).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	rates := make([]entity.VehicleRate, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, entity.VehicleRate{
			Category:      row.Category,
			Label:         row.Label,
			BaseFare:      row.BaseFare,
			PerKmRate:     row.PerKmRate,
			PerMinuteRate: row.PerMinuteRate,
			MinimumFare:   row.MinimumFare,
		})
	}
	return rates, nil
}
