// Package broadcast is an in-process observer registry. Values are delivered
// synchronously, in publish order, to the subscribers registered when the
// publish started.
//
// Publish snapshots the subscriber list before dispatch, so a subscriber added
// from inside a callback only sees later values. Unsubscribing takes effect
// immediately, including for the remainder of an ongoing dispatch.
package broadcast

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Broadcaster delivers values to in-process subscribers.
type Broadcaster[T any] interface {
	// Subscribe registers fn and returns a function that removes it again.
	// The returned function is safe to call more than once.
	Subscribe(fn func(T)) (unsubscribe func())
	Publish(value T)
	// Interactive reports whether subscribers can ever receive anything.
	Interactive() bool
}

type handle[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// Channel is the in-memory Broadcaster.
type Channel[T any] struct {
	name string

	mu   sync.Mutex
	subs []*handle[T]
}

func NewChannel[T any](name string) *Channel[T] {
	return &Channel[T]{name: name}
}

func (c *Channel[T]) Name() string { return c.name }

func (c *Channel[T]) Interactive() bool { return c != nil }

func (c *Channel[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return noop
	}
	h := &handle[T]{fn: fn}
	h.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, h)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(h) })
	}
}

func (c *Channel[T]) remove(h *handle[T]) {
	h.active.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = slices.DeleteFunc(c.subs, func(s *handle[T]) bool { return s == h })
}

func (c *Channel[T]) Publish(value T) {
	c.mu.Lock()
	snapshot := slices.Clone(c.subs)
	c.mu.Unlock()

	for _, h := range snapshot {
		if !h.active.Load() {
			continue
		}
		h.fn(value)
	}
}

// Len returns the number of registered subscribers.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type discard[T any] struct{}

// Discard returns a Broadcaster for non-interactive contexts: subscriptions
// are accepted and never called.
func Discard[T any]() Broadcaster[T] { return discard[T]{} }

func (discard[T]) Subscribe(func(T)) func() { return noop }

func (discard[T]) Publish(T) {}

func (discard[T]) Interactive() bool { return false }

func noop() {}
