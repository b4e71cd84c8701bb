package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// CustomerRepository defines persistence for chat customers.
type CustomerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*entity.Customer, error)
	Create(ctx context.Context, customer *entity.Customer) error
	UpdateName(ctx context.Context, id, name string) error
}
