package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// WhatsappRepository sends outbound messages through the WhatsApp Cloud API
type WhatsappRepository struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	phoneID     string
	client      *http.Client
}

// NewWhatsappRepository creates a new WhatsApp channel adapter
func NewWhatsappRepository(logger logger.Logger, baseURL, token, phoneID string) repository.ChannelRepository {
	return &WhatsappRepository{
		logger:      logger,
		baseURL:     baseURL,
		bearerToken: token,
		phoneID:     phoneID,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type waTextBody struct {
	Body string `json:"body"`
}

type waButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type waInteractive struct {
	Type   string `json:"type"`
	Body   waTextBody `json:"body"`
	Action struct {
		Buttons []waButton `json:"buttons,omitempty"`
		Name    string     `json:"name,omitempty"`
	} `json:"action"`
}

type waMessage struct {
	MessagingProduct string         `json:"messaging_product"`
	To               string         `json:"to,omitempty"`
	Type             string         `json:"type,omitempty"`
	Text             *waTextBody    `json:"text,omitempty"`
	Interactive      *waInteractive `json:"interactive,omitempty"`
	Status           string         `json:"status,omitempty"`
	MessageID        string         `json:"message_id,omitempty"`
}

// SendText sends a plain text message and returns the provider message id
func (r *WhatsappRepository) SendText(ctx context.Context, to, body string) (string, error) {
	msg := waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &waTextBody{Body: body},
	}
	return r.post(ctx, msg)
}

// SendButtons sends an interactive button message
func (r *WhatsappRepository) SendButtons(ctx context.Context, to, body string, buttons []repository.ChannelButton) (string, error) {
	interactive := &waInteractive{Type: "button", Body: waTextBody{Body: body}}
	for _, b := range buttons {
		var wb waButton
		wb.Type = "reply"
		wb.Reply.ID = b.ID
		wb.Reply.Title = b.Title
		interactive.Action.Buttons = append(interactive.Action.Buttons, wb)
	}
	msg := waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return r.post(ctx, msg)
}

// SendLocationRequest asks the customer to share their GPS position
func (r *WhatsappRepository) SendLocationRequest(ctx context.Context, to, body string) (string, error) {
	interactive := &waInteractive{Type: "location_request_message", Body: waTextBody{Body: body}}
	interactive.Action.Name = "send_location"
	msg := waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return r.post(ctx, msg)
}

// MarkRead flags an inbound message as read
func (r *WhatsappRepository) MarkRead(ctx context.Context, messageID string) error {
	msg := waMessage{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}
	_, err := r.post(ctx, msg)
	return err
}

func (r *WhatsappRepository) post(ctx context.Context, msg waMessage) (string, error) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", r.baseURL, r.phoneID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+r.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return "", fmt.Errorf("WhatsApp API returned status %d: %v", resp.StatusCode, errorBody)
	}

	var response struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	messageID := ""
	if len(response.Messages) > 0 {
		messageID = response.Messages[0].ID
	}

	r.logger.Debug("Message sent to WhatsApp",
		"to", msg.To,
		"type", msg.Type,
		"messageId", messageID)

	return messageID, nil
}
