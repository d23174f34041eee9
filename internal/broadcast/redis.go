package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroadcaster is the low-latency transport for instances spread over
// multiple processes, built on Redis pub/sub.
type RedisBroadcaster struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroadcaster wraps an existing client.
func NewRedisBroadcaster(client *redis.Client, logger *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, logger: logger}
}

// Publish sends the envelope to every subscriber of the channel,
// including the publisher's own instance.
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

// Subscribe consumes the channel until the returned cancel runs.
func (b *RedisBroadcaster) Subscribe(channel string, handler Handler) func() {
	pubsub := b.client.Subscribe(context.Background(), channel)

	go func() {
		for raw := range pubsub.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				b.logger.Warn("broadcast envelope unreadable", zap.String("channel", channel), zap.Error(err))
				continue
			}
			handler(msg)
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("failed to close subscription", zap.String("channel", channel), zap.Error(err))
		}
	}
}

// Close is a no-op; the underlying client is owned by the caller.
func (b *RedisBroadcaster) Close() error {
	return nil
}
