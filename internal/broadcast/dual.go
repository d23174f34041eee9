package broadcast

import (
	"context"
	"errors"
	"sync"
)

// dedupCap bounds the remembered envelope ids per Dual.
const dedupCap = 256

// Dual composes the preferred transport with the storage-relay fallback.
// Every publish fires on both; a fallback-only publish would strand
// instances whose primary subscription predates a reload race, and a
// primary-only publish would strand instances without the primitive at
// all. Receivers dedup on the envelope id so a message seen on both
// transports is delivered once.
type Dual struct {
	primary  Broadcaster
	fallback Broadcaster

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewDual combines the two transports.
func NewDual(primary, fallback Broadcaster) *Dual {
	return &Dual{
		primary:  primary,
		fallback: fallback,
		seen:     make(map[string]struct{}),
	}
}

// Publish sends on both transports, always. A failure on one does not
// suppress the other.
func (d *Dual) Publish(ctx context.Context, channel string, msg Message) error {
	primaryErr := d.primary.Publish(ctx, channel, msg)
	fallbackErr := d.fallback.Publish(ctx, channel, msg)
	return errors.Join(primaryErr, fallbackErr)
}

// Subscribe registers the handler on both transports behind an id dedup.
func (d *Dual) Subscribe(channel string, handler Handler) func() {
	wrapped := func(msg Message) {
		if d.alreadySeen(msg.ID) {
			return
		}
		handler(msg)
	}

	cancelPrimary := d.primary.Subscribe(channel, wrapped)
	cancelFallback := d.fallback.Subscribe(channel, wrapped)
	return func() {
		cancelPrimary()
		cancelFallback()
	}
}

// Close closes both transports.
func (d *Dual) Close() error {
	return errors.Join(d.primary.Close(), d.fallback.Close())
}

func (d *Dual) alreadySeen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > dedupCap {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
	return false
}
