package storage

import (
	"context"
	"sync"
)

// Backend is the key-value store behind Store. Values are JSON text.
//
// Get reports ok=false when the key is absent. A Backend that is not
// Available is never read from or written to.
type Backend interface {
	Available() bool
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryBackend keeps values in process memory. It is used by tests and by
// the storefront when no durable driver is configured.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: map[string]string{}}
}

func (b *MemoryBackend) Available() bool { return b != nil }

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	value, ok := b.values[key]
	b.mu.RUnlock()
	return value, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.values, key)
	b.mu.Unlock()
	return nil
}

type discardBackend struct{}

// Discard returns a Backend for non-interactive contexts. Reads behave as if
// nothing was ever stored and writes are dropped.
func Discard() Backend { return discardBackend{} }

func (discardBackend) Available() bool { return false }

func (discardBackend) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (discardBackend) Set(context.Context, string, string) error { return nil }

func (discardBackend) Delete(context.Context, string) error { return nil }
