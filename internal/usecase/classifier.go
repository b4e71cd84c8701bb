package usecase

import (
	"context"
	"encoding/json"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
	"taxibot-service/pkg/metrics"
)

// Classifier wraps the remote intent classifier with the keyword fallback,
// so the state machine never stalls on a classifier outage.
type Classifier struct {
	remote  repository.IntentRepository
	timeout time.Duration
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewClassifier creates a new classifier. A nil remote means keyword-only
// operation.
func NewClassifier(remote repository.IntentRepository, timeout time.Duration, logger logger.Logger, m *metrics.Metrics) *Classifier {
	return &Classifier{
		remote:  remote,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Classify interprets an utterance against the current booking draft.
func (c *Classifier) Classify(ctx context.Context, text string, draft *entity.Context) *entity.Intent {
	if c.remote == nil {
		return KeywordIntent(text)
	}

	contextJSON := "{}"
	if draft != nil {
		if b, err := json.Marshal(draft); err == nil {
			contextJSON = string(b)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	intent, err := c.remote.Classify(ctx, text, contextJSON)
	if err != nil || intent == nil {
		c.logger.Warn("Remote classifier failed, using keyword fallback", "error", err)
		if c.metrics != nil {
			c.metrics.ClassifierFallbacks.Inc()
		}
		return KeywordIntent(text)
	}
	return intent
}
