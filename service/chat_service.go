package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/ports"
	"github.com/chainchat/chainchat/registry"
)

const (
	historyDefaultLimit = 50
	historyMaxLimit     = 100
)

// ChatService validates, persists and fans out direct messages. A send is
// successful once persisted; real-time delivery and event publication are
// best-effort on top.
type ChatService struct {
	users    ports.UserStore
	messages ports.MessageStore
	registry *registry.Registry
	events   ports.EventPublisher
}

// NewChatService creates a new chat service. events may be nil when no
// publisher is configured.
func NewChatService(users ports.UserStore, messages ports.MessageStore, reg *registry.Registry, events ports.EventPublisher) *ChatService {
	return &ChatService{
		users:    users,
		messages: messages,
		registry: reg,
		events:   events,
	}
}

// pushSender is the sender summary embedded in a push payload.
type pushSender struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
}

// pushMessage is the message body of a push payload.
type pushMessage struct {
	ID        string     `json:"id"`
	Sender    pushSender `json:"sender"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// pushEnvelope is the payload written to the recipient's live channel.
type pushEnvelope struct {
	Type    string      `json:"type"`
	Message pushMessage `json:"message"`
}

// Send resolves the recipient reference, persists the message and attempts
// real-time delivery. Delivery failure does not affect the result: the
// stored record is the authoritative one.
func (s *ChatService) Send(ctx context.Context, senderID, recipientRef, content string) (*core.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, core.ErrInvalidContent
	}

	ref, err := core.ParseRecipientRef(recipientRef)
	if err != nil {
		return nil, err
	}

	var recipient *core.User
	switch ref.Kind {
	case core.RecipientByWallet:
		recipient, err = s.users.FindUserByWallet(ctx, ref.Wallet)
	case core.RecipientByID:
		recipient, err = s.users.FindUserByID(ctx, ref.ID)
	}
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, core.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	msg := &core.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.notify(ctx, msg)

	return msg, nil
}

// notify pushes the message to the recipient's live channel and publishes
// the message-sent event. Both are fire-and-forget.
func (s *ChatService) notify(ctx context.Context, msg *core.Message) {
	sender, err := s.users.FindUserByID(ctx, msg.SenderID)
	if err != nil {
		log.Printf("push: load sender %s: %v", msg.SenderID, err)
	} else {
		envelope := pushEnvelope{
			Type: "new_message",
			Message: pushMessage{
				ID: msg.ID,
				Sender: pushSender{
					ID:            sender.ID,
					WalletAddress: sender.WalletAddress,
					Username:      sender.Handle,
					DisplayName:   sender.DisplayName,
				},
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt,
			},
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			log.Printf("push: marshal payload: %v", err)
		} else {
			// An offline recipient is the normal case, not an error;
			// the message stays durable for later pull.
			s.registry.Push(msg.RecipientID, payload)
		}
	}

	if s.events != nil {
		if err := s.events.PublishMessageSent(ctx, msg); err != nil {
			log.Printf("publish message event: %v", err)
		}
	}
}

// History returns the conversation between two users, newest first,
// paginated by skip and limit. The limit is capped to bound response size.
func (s *ChatService) History(ctx context.Context, userID, otherID string, skip, limit int) ([]core.Message, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}
	return s.messages.MessagesBetween(ctx, userID, otherID, skip, limit)
}
