package broadcast

import (
	"context"
	"sync"
)

// Hub is a synchronous in-process broadcaster. It serves single-process
// multi-instance setups and deterministic tests. Like Redis pub/sub, it
// delivers to every subscriber including the publisher's own instance;
// origin filtering is the receiver's job.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]Handler)}
}

// Publish synchronously invokes every handler subscribed to the channel.
func (h *Hub) Publish(_ context.Context, channel string, msg Message) error {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[channel]))
	for _, handler := range h.subs[channel] {
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}
	return nil
}

// Subscribe registers a handler for the channel.
func (h *Hub) Subscribe(channel string, handler Handler) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]Handler)
	}
	h.subs[channel][id] = handler
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[channel], id)
	}
}

// Close drops every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = make(map[string]map[int]Handler)
	return nil
}
