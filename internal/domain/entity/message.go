package entity

import (
	"time"
)

// Message directions.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Message content types as delivered by the chat channel.
const (
	MessageTypeText        = "text"
	MessageTypeAudio       = "audio"
	MessageTypeLocation    = "location"
	MessageTypeInteractive = "interactive"
)

// Message is one immutable chat turn, inbound or outbound. Append-only.
type Message struct {
	ID             string                 `bson:"_id,omitempty"`
	ConversationID string                 `bson:"conversationId"`
	CustomerID     string                 `bson:"customerId"`
	Direction      string                 `bson:"direction"`
	Type           string                 `bson:"type"`
	Content        string                 `bson:"content"`
	ProviderMsgID  string                 `bson:"providerMsgId,omitempty"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt      time.Time              `bson:"createdAt"`
}

// InboundEvent is a parsed event from the chat channel webhook.
type InboundEvent struct {
	From        string
	MessageID   string
	Type        string
	Text        string
	ButtonID    string
	Latitude    float64
	Longitude   float64
	ProfileName string
	Timestamp   time.Time
}
