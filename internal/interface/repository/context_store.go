package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisContextStore keeps the mutable booking draft in Redis. The key TTL is
// the conversation idle timeout: when the entry expires the draft is gone
// and the next message starts a fresh conversation.
type RedisContextStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisContextStore creates a new Redis-backed context store
func NewRedisContextStore(rdb redis.Cmdable, ttl time.Duration) repository.ContextStore {
	return &RedisContextStore{rdb: rdb, ttl: ttl}
}

func (r *RedisContextStore) contextKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:context", conversationID)
}

// Load fetches the draft; a missing key yields an empty draft. Blobs
// serialized before versioning are upgraded in place.
func (r *RedisContextStore) Load(ctx context.Context, conversationID string) (*entity.Context, error) {
	key := r.contextKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return &entity.Context{Version: entity.ContextVersion}, nil
		}
		return nil, fmt.Errorf("load context: %w", err)
	}

	var draft entity.Context
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if draft.Version < entity.ContextVersion {
		draft.Version = entity.ContextVersion
	}
	return &draft, nil
}

// Save overwrites the draft whole and refreshes the idle TTL.
func (r *RedisContextStore) Save(ctx context.Context, conversationID string, draft *entity.Context) error {
	draft.Version = entity.ContextVersion
	b, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	key := r.contextKey(conversationID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	return nil
}

// Clear discards the draft.
func (r *RedisContextStore) Clear(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.contextKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return nil
}
