package usecase

import (
	"context"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// Notifier sends outbound messages and records each one in the message log,
// so the audit trail covers both directions of the chat.
type Notifier struct {
	channel     repository.ChannelRepository
	messageRepo repository.MessageRepository
	logger      logger.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(channel repository.ChannelRepository, messageRepo repository.MessageRepository, logger logger.Logger) *Notifier {
	return &Notifier{
		channel:     channel,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// SendText sends a text message and logs it.
func (n *Notifier) SendText(ctx context.Context, conversationID, customerID, to, body string) {
	msgID, err := n.channel.SendText(ctx, to, body)
	if err != nil {
		n.logger.Error("Failed to send text message", "to", to, "error", err)
		return
	}
	n.record(ctx, conversationID, customerID, entity.MessageTypeText, body, msgID, nil)
}

// SendButtons sends an interactive button message and logs it.
func (n *Notifier) SendButtons(ctx context.Context, conversationID, customerID, to, body string, buttons []repository.ChannelButton) {
	msgID, err := n.channel.SendButtons(ctx, to, body, buttons)
	if err != nil {
		n.logger.Error("Failed to send button message", "to", to, "error", err)
		return
	}
	ids := make([]interface{}, 0, len(buttons))
	for _, b := range buttons {
		ids = append(ids, b.ID)
	}
	n.record(ctx, conversationID, customerID, entity.MessageTypeInteractive, body, msgID, map[string]interface{}{"buttons": ids})
}

// SendLocationRequest asks for the customer's position and logs it.
func (n *Notifier) SendLocationRequest(ctx context.Context, conversationID, customerID, to, body string) {
	msgID, err := n.channel.SendLocationRequest(ctx, to, body)
	if err != nil {
		n.logger.Error("Failed to send location request", "to", to, "error", err)
		return
	}
	n.record(ctx, conversationID, customerID, entity.MessageTypeInteractive, body, msgID, map[string]interface{}{"locationRequest": true})
}

func (n *Notifier) record(ctx context.Context, conversationID, customerID, msgType, content, providerMsgID string, metadata map[string]interface{}) {
	err := n.messageRepo.Append(ctx, &entity.Message{
		ConversationID: conversationID,
		CustomerID:     customerID,
		Direction:      entity.DirectionOutbound,
		Type:           msgType,
		Content:        content,
		ProviderMsgID:  providerMsgID,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		n.logger.Error("Failed to log outbound message", "conversationId", conversationID, "error", err)
	}
}
