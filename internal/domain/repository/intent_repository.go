package repository

import (
	"context"

	"taxibot-service/internal/domain/entity"
)

// IntentRepository is the remote natural-language classifier. Callers must
// treat it as best-effort and fall back to keyword heuristics on error.
type IntentRepository interface {
	Classify(ctx context.Context, text string, contextJSON string) (*entity.Intent, error)
}
