package definitions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// ChangeChannel is the pub/sub channel definition changes are published on
const ChangeChannel = "definitions:changed"

// Change describes one successful write to a definition set
type Change struct {
	Kind   string `json:"kind"`   // "columns" or "filters"
	Action string `json:"action"` // save, add, update, delete, toggle, import, reset
	ID     string `json:"id,omitempty"`
}

// Notifier is told about every successful write
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, change Change) error

func (f NotifierFunc) Notify(ctx context.Context, change Change) error {
	return f(ctx, change)
}

// RedisNotifier publishes changes over Redis pub/sub so other processes
// sharing the store can re-evaluate
type RedisNotifier struct {
	client  storage.RedisClient
	channel string
}

// NewRedisNotifier creates a notifier publishing on ChangeChannel
func NewRedisNotifier(client storage.RedisClient) *RedisNotifier {
	return &RedisNotifier{client: client, channel: ChangeChannel}
}

// Notify publishes change
func (n *RedisNotifier) Notify(ctx context.Context, change Change) error {
	if err := n.client.Publish(ctx, n.channel, change); err != nil {
		return fmt.Errorf("failed to publish definition change: %w", err)
	}
	return nil
}

// Listen subscribes to the change channel. Undecodable messages are logged
// and skipped. The returned channel closes when ctx is done.
func (n *RedisNotifier) Listen(ctx context.Context) (<-chan Change, error) {
	msgs, err := n.client.Subscribe(ctx, n.channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to definition changes: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for msg := range msgs {
			var change Change
			if err := json.Unmarshal([]byte(msg.Message), &change); err != nil {
				logger.Warn("Dropping malformed definition change",
					logger.String("channel", msg.Channel),
					logger.ErrorField(err),
				)
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func notify(ctx context.Context, n Notifier, change Change) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, change); err != nil {
		logger.Warn("Definition change notification failed",
			logger.String("kind", change.Kind),
			logger.String("action", change.Action),
			logger.ErrorField(err),
		)
	}
}
