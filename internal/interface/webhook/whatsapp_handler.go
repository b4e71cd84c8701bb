package webhook

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/usecase"
	"taxibot-service/pkg/logger"
)

// WhatsAppHandler receives the Cloud API webhook. The channel retries
// undelivered webhooks aggressively, so POST is acknowledged immediately
// and processing continues in the background.
type WhatsAppHandler struct {
	processor   *usecase.ConversationProcessor
	verifyToken string
	timeout     time.Duration
	logger      logger.Logger
}

// NewWhatsAppHandler creates the chat channel webhook handler.
func NewWhatsAppHandler(processor *usecase.ConversationProcessor, verifyToken string, timeout time.Duration, logger logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		processor:   processor,
		verifyToken: verifyToken,
		timeout:     timeout,
		logger:      logger,
	}
}

// waWebhookPayload mirrors the Cloud API webhook envelope, limited to the
// fields the bot consumes.
type waWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []waWebhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type waWebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

func (h *WhatsAppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verify answers the Cloud API subscription handshake.
func (h *WhatsAppHandler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	h.logger.Warn("Webhook verification rejected")
	w.WriteHeader(http.StatusForbidden)
}

func (h *WhatsAppHandler) receive(w http.ResponseWriter, r *http.Request) {
	var payload waWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("Unparseable webhook payload", "error", err)
		// still 200: a 4xx only makes the channel retry the same body
		w.WriteHeader(http.StatusOK)
		return
	}

	events := h.parse(&payload)

	// ack before processing: the reply flows through the send API, not here
	w.WriteHeader(http.StatusOK)

	for _, evt := range events {
		evt := evt
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					h.logger.Error("Panic while processing inbound event", "messageId", evt.MessageID, "panic", rec)
				}
			}()
			ctx, cancel := contextWithTimeout(h.timeout)
			defer cancel()
			if err := h.processor.ProcessInboundEvent(ctx, &evt); err != nil {
				h.logger.Error("Failed to process inbound event", "messageId", evt.MessageID, "error", err)
			}
		}()
	}
}

func (h *WhatsAppHandler) parse(payload *waWebhookPayload) []entity.InboundEvent {
	var events []entity.InboundEvent
	for _, e := range payload.Entry {
		for _, ch := range e.Changes {
			profiles := make(map[string]string, len(ch.Value.Contacts))
			for _, c := range ch.Value.Contacts {
				profiles[c.WaID] = c.Profile.Name
			}
			for _, m := range ch.Value.Messages {
				evt := entity.InboundEvent{
					From:        m.From,
					MessageID:   m.ID,
					Type:        m.Type,
					ProfileName: profiles[m.From],
				}
				if ts, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
					evt.Timestamp = time.Unix(ts, 0)
				} else {
					evt.Timestamp = time.Now()
				}
				switch m.Type {
				case entity.MessageTypeText:
					if m.Text != nil {
						evt.Text = m.Text.Body
					}
				case entity.MessageTypeLocation:
					if m.Location != nil {
						evt.Latitude = m.Location.Latitude
						evt.Longitude = m.Location.Longitude
					}
				case entity.MessageTypeInteractive:
					if m.Interactive != nil && m.Interactive.ButtonReply != nil {
						evt.ButtonID = m.Interactive.ButtonReply.ID
						evt.Text = m.Interactive.ButtonReply.Title
					}
				}
				events = append(events, evt)
			}
		}
	}
	return events
}
