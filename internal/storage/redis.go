package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisKV backs the shared store with Redis so console instances in
// separate processes still share one credential medium. Mutation watch
// rides on keyspace notifications; since Redis notifies the writing
// client too, origin filtering happens one layer up on the broadcast
// envelope rather than here.
type RedisKV struct {
	client *redis.Client
	db     int
	logger *zap.Logger
}

// NewRedisKV wraps an existing client. Keyspace notifications are enabled
// best-effort; on managed servers that forbid CONFIG the watch degrades
// to never firing, which the session layer tolerates.
func NewRedisKV(client *redis.Client, db int, logger *zap.Logger) *RedisKV {
	if err := client.ConfigSet(context.Background(), "notify-keyspace-events", "K$gxe").Err(); err != nil {
		logger.Warn("unable to enable keyspace notifications", zap.Error(err))
	}
	return &RedisKV{client: client, db: db, logger: logger}
}

// Get returns the stored value, or "" when absent.
func (r *RedisKV) Get(key string) (string, error) {
	val, err := r.client.Get(context.Background(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores the value without expiry.
func (r *RedisKV) Set(key, value string) error {
	return r.client.Set(context.Background(), key, value, 0).Err()
}

// Delete removes the keys.
func (r *RedisKV) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(context.Background(), keys...).Err()
}

// Watch subscribes to keyspace events for key and dispatches mutations
// until the returned cancel runs.
func (r *RedisKV) Watch(key string, fn func(Mutation)) func() {
	channel := fmt.Sprintf("__keyspace@%d__:%s", r.db, key)
	pubsub := r.client.Subscribe(context.Background(), channel)

	go func() {
		for msg := range pubsub.Channel() {
			switch msg.Payload {
			case "set":
				val, err := r.Get(key)
				if err != nil {
					r.logger.Warn("failed to read watched key", zap.String("key", key), zap.Error(err))
					continue
				}
				fn(Mutation{Key: key, Value: val})
			case "del", "expired":
				fn(Mutation{Key: key, Deleted: true})
			}
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Warn("failed to close keyspace subscription", zap.String("key", key), zap.Error(err))
		}
	}
}

// Close is a no-op; the underlying client is owned by the caller.
func (r *RedisKV) Close() error {
	return nil
}
