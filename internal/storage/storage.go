// Package storage abstracts the durable key-value medium shared by every
// console instance on the same device. Tokens and the broadcast relay key
// both live here.
package storage

// Mutation describes an observed change to a watched key. Watchers never
// see their own instance's writes, only sibling instances' ones.
type Mutation struct {
	Key     string
	Value   string
	Deleted bool
}

// KV is one instance's view of the shared store. Get returns "" for an
// absent key. Watch registers a mutation callback and returns its cancel.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
	Watch(key string, fn func(Mutation)) (cancel func())
	Close() error
}
