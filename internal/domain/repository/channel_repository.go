package repository

import (
	"context"
)

// ChannelButton is one interactive reply choice.
type ChannelButton struct {
	ID    string
	Title string
}

// ChannelRepository defines the outbound primitives of the chat channel.
// Every call is a network operation and must be given a bounded context.
type ChannelRepository interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendButtons(ctx context.Context, to, body string, buttons []ChannelButton) (string, error)
	SendLocationRequest(ctx context.Context, to, body string) (string, error)
	MarkRead(ctx context.Context, messageID string) error
}
