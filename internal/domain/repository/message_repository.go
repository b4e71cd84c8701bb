package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// MessageRepository is the append-only chat turn log.
type MessageRepository interface {
	Append(ctx context.Context, message *entity.Message) error
}
