package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazytech/jjc-console/internal/storage"
)

// Relay is the durable-storage fallback transport. A publish writes the
// envelope to one shared relay key and deletes it again shortly after, so
// the next write always mutates the key even when the payload is shaped
// the same; storage mutation watch does not fire for no-op writes.
type Relay struct {
	kv         storage.KV
	key        string
	clearDelay time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	subs        map[string]map[int]Handler
	nextID      int
	watchCancel func()
}

// NewRelay builds a relay over one instance's storage view.
func NewRelay(kv storage.KV, key string, clearDelay time.Duration, logger *zap.Logger) *Relay {
	return &Relay{
		kv:         kv,
		key:        key,
		clearDelay: clearDelay,
		logger:     logger,
		subs:       make(map[string]map[int]Handler),
	}
}

// Publish writes the envelope to the relay key and schedules its removal.
func (r *Relay) Publish(_ context.Context, channel string, msg Message) error {
	msg.Channel = channel
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.kv.Set(r.key, string(data)); err != nil {
		r.logger.Warn("relay write failed", zap.String("channel", channel), zap.Error(err))
		return err
	}

	time.AfterFunc(r.clearDelay, func() {
		if err := r.kv.Delete(r.key); err != nil {
			r.logger.Warn("relay clear failed", zap.Error(err))
		}
	})
	return nil
}

// Subscribe registers a handler for envelopes addressed to the channel.
// The storage watch starts with the first subscriber.
func (r *Relay) Subscribe(channel string, handler Handler) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	if r.subs[channel] == nil {
		r.subs[channel] = make(map[int]Handler)
	}
	r.subs[channel][id] = handler
	if r.watchCancel == nil {
		r.watchCancel = r.kv.Watch(r.key, r.dispatch)
	}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[channel], id)
	}
}

// Close stops the storage watch and drops every subscription.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchCancel != nil {
		r.watchCancel()
		r.watchCancel = nil
	}
	r.subs = make(map[string]map[int]Handler)
	return nil
}

func (r *Relay) dispatch(mut storage.Mutation) {
	// The scheduled clear shows up as a delete; only fresh writes carry
	// an envelope.
	if mut.Deleted || mut.Value == "" {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(mut.Value), &msg); err != nil {
		r.logger.Warn("relay envelope unreadable", zap.Error(err))
		return
	}

	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.subs[msg.Channel]))
	for _, handler := range r.subs[msg.Channel] {
		handlers = append(handlers, handler)
	}
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}
}
