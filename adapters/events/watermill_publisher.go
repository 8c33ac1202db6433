package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/ports"
)

// MessageSentEvent notifies other instances that a message was persisted.
// Content stays out of the event; consumers fetch it from storage if needed.
type MessageSentEvent struct {
	MessageID   string    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "chat.message.sent",
	}
}

// PublishMessageSent publishes a message-sent event.
func (p *WatermillPublisher) PublishMessageSent(ctx context.Context, msg *core.Message) error {
	event := MessageSentEvent{
		MessageID:   msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		CreatedAt:   msg.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	wm := message.NewMessage(msg.ID, payload)

	if err := p.publisher.Publish(p.topic, wm); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
