package ports

import (
	"context"

	"github.com/chainchat/chainchat/core"
)

// EventPublisher publishes domain events to notify other instances.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, msg *core.Message) error
}
