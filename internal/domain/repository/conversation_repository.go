package repository

import (
	"context"
	"time"

	"taxibot-service/internal/domain/entity"
)

// ConversationRepository defines persistence for booking sessions.
type ConversationRepository interface {
	FindActiveByCustomer(ctx context.Context, customerID string) (*entity.Conversation, error)
	FindByID(ctx context.Context, id string) (*entity.Conversation, error)
	Create(ctx context.Context, conversation *entity.Conversation) error
	UpdateState(ctx context.Context, id, state string, lastMessageAt time.Time) error
	Deactivate(ctx context.Context, id string) error
}

// ContextStore holds the mutable booking draft for an active conversation.
// Entries expire after the conversation idle timeout; a missing entry means
// the draft was discarded.
type ContextStore interface {
	Load(ctx context.Context, conversationID string) (*entity.Context, error)
	Save(ctx context.Context, conversationID string, draft *entity.Context) error
	Clear(ctx context.Context, conversationID string) error
}
