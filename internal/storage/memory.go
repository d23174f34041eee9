package storage

import "sync"

// Memory is a shared in-process store. Each instance obtains its own
// Handle; mutation notifications go to every handle except the writer's,
// and writes that do not change a value notify nobody. This mirrors the
// semantics the session layer depends on for its relay fallback.
type Memory struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[string][]*memWatcher
	nextID   int
	writeErr error
}

type memWatcher struct {
	id    int
	owner *Handle
	fn    func(Mutation)
}

// Handle is one instance's view of a Memory store.
type Handle struct {
	store *Memory
}

// NewMemory creates an empty shared store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]string),
		watchers: make(map[string][]*memWatcher),
	}
}

// Handle returns a new instance view of the store.
func (m *Memory) Handle() *Handle {
	return &Handle{store: m}
}

// FailWrites makes every subsequent Set return err, simulating a full or
// unavailable storage medium. Pass nil to restore normal behavior.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Get returns the stored value, or "" when absent.
func (h *Handle) Get(key string) (string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.data[key], nil
}

// Set stores the value and notifies sibling watchers when it changed.
func (h *Handle) Set(key, value string) error {
	m := h.store
	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	prev, existed := m.data[key]
	if existed && prev == value {
		m.mu.Unlock()
		return nil
	}
	m.data[key] = value
	targets := m.siblingsLocked(key, h)
	m.mu.Unlock()

	for _, fn := range targets {
		fn(Mutation{Key: key, Value: value})
	}
	return nil
}

// Delete removes the keys, notifying sibling watchers of present ones.
func (h *Handle) Delete(keys ...string) error {
	m := h.store
	type pending struct {
		key string
		fns []func(Mutation)
	}
	var notify []pending

	m.mu.Lock()
	for _, key := range keys {
		if _, ok := m.data[key]; !ok {
			continue
		}
		delete(m.data, key)
		notify = append(notify, pending{key: key, fns: m.siblingsLocked(key, h)})
	}
	m.mu.Unlock()

	for _, p := range notify {
		for _, fn := range p.fns {
			fn(Mutation{Key: p.key, Deleted: true})
		}
	}
	return nil
}

// Watch registers fn for mutations of key made through other handles.
func (h *Handle) Watch(key string, fn func(Mutation)) func() {
	m := h.store
	m.mu.Lock()
	m.nextID++
	w := &memWatcher{id: m.nextID, owner: h, fn: fn}
	m.watchers[key] = append(m.watchers[key], w)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.watchers[key]
		for i, candidate := range list {
			if candidate.id == w.id {
				m.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Close drops every watcher registered through this handle.
func (h *Handle) Close() error {
	m := h.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, list := range m.watchers {
		kept := list[:0]
		for _, w := range list {
			if w.owner != h {
				kept = append(kept, w)
			}
		}
		m.watchers[key] = kept
	}
	return nil
}

func (m *Memory) siblingsLocked(key string, origin *Handle) []func(Mutation) {
	list := m.watchers[key]
	out := make([]func(Mutation), 0, len(list))
	for _, w := range list {
		if w.owner != origin {
			out = append(out, w.fn)
		}
	}
	return out
}
