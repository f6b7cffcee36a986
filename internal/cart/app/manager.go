package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	catalog "github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
)

// Manager is the only writer of the cart. Every mutation reads the persisted
// cart, computes the next one, persists it and then broadcasts exactly what
// was persisted. Mutations are serialized, so concurrent callers never
// interleave between the write and the broadcast.
//
// Callbacks run synchronously on the mutating goroutine while the mutation
// lock is held. They may subscribe and unsubscribe freely but must not call
// mutating methods of the same Manager.
//
// A store that reports itself unavailable keeps nothing, so the Manager
// broadcasts nothing either and mutations return the (empty) persisted cart.
type Manager struct {
	store      CartStore
	events     Events
	log        *slog.Logger
	persistent bool

	mu       sync.Mutex
	revision atomic.Uint64
}

func NewManager(store CartStore, events Events, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	persistent := true
	if a, ok := store.(availability); ok {
		persistent = a.Available()
	}
	if !persistent {
		events = DiscardEvents()
	}
	return &Manager{
		store:      store,
		events:     events.withDefaults(),
		log:        log,
		persistent: persistent,
	}
}

// Items returns the persisted cart without side effects.
func (m *Manager) Items(ctx context.Context) domain.Cart {
	return m.store.Cart(ctx)
}

// AddItem increments the quantity of an existing item or appends a new one
// holding a copy of product.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product) (domain.Cart, error) {
	return m.mutate(ctx, "add", func(items domain.Cart) domain.Cart {
		if i := items.Index(product.ID); i >= 0 {
			items[i].Quantity++
			return items
		}
		return append(items, domain.CartItem{Product: product, Quantity: 1})
	})
}

// UpdateQuantity sets the quantity of productID, clamped to at least 1.
// Unknown ids leave the cart unchanged.
func (m *Manager) UpdateQuantity(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	return m.mutate(ctx, "update_quantity", func(items domain.Cart) domain.Cart {
		if i := items.Index(productID); i >= 0 {
			items[i].Quantity = max(1, quantity)
		}
		return items
	})
}

func (m *Manager) RemoveItem(ctx context.Context, productID int64) (domain.Cart, error) {
	return m.mutate(ctx, "remove", func(items domain.Cart) domain.Cart {
		if i := items.Index(productID); i >= 0 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
}

// Deduct lowers the quantities of the cart by those in ordered and drops
// items that reach zero. Items added after ordered was read are kept.
func (m *Manager) Deduct(ctx context.Context, ordered domain.Cart) (domain.Cart, error) {
	return m.mutate(ctx, "deduct", func(items domain.Cart) domain.Cart {
		for _, o := range ordered {
			if i := items.Index(o.ID); i >= 0 {
				items[i].Quantity -= o.Quantity
			}
		}
		kept := items[:0]
		for _, item := range items {
			if item.Quantity > 0 {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

// Clear deletes the persisted cart and broadcasts an empty one.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.ClearCart(ctx); err != nil {
		m.log.ErrorContext(ctx, "cart clear failed", slog.Any("err", err))
		return err
	}
	m.publish(domain.Cart{})
	return nil
}

// OpenCart asks every open-signal subscriber to show the cart.
func (m *Manager) OpenCart() {
	m.events.Opened.Publish(struct{}{})
}

// OnCartUpdated calls fn once right away with the persisted cart and then
// after every mutation. Each call receives its own copy of the items.
func (m *Manager) OnCartUpdated(ctx context.Context, fn func(domain.Cart)) (unsubscribe func()) {
	if fn == nil || !m.events.Updated.Interactive() {
		return func() {}
	}

	// A catch-up read can race a concurrent mutation; never let an older
	// state reach fn after a newer broadcast did.
	var (
		mu        sync.Mutex
		delivered bool
		last      uint64
	)
	deliver := func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if delivered && s.Revision < last {
			return
		}
		delivered, last = true, s.Revision
		fn(s.Items.Clone())
	}

	unsubscribe = m.events.Updated.Subscribe(deliver)
	revision := m.revision.Load()
	deliver(Snapshot{Revision: revision, Items: m.store.Cart(ctx)})
	return unsubscribe
}

// OnCartOpen subscribes fn to open signals. There is no replay.
func (m *Manager) OnCartOpen(fn func()) (unsubscribe func()) {
	if fn == nil || !m.events.Opened.Interactive() {
		return func() {}
	}
	return m.events.Opened.Subscribe(func(struct{}) { fn() })
}

func (m *Manager) mutate(ctx context.Context, op string, next func(domain.Cart) domain.Cart) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := next(m.store.Cart(ctx).Clone())
	if err := m.store.SaveCart(ctx, items); err != nil {
		m.log.ErrorContext(ctx, "cart save failed", slog.String("op", op), slog.Any("err", err))
		return nil, err
	}
	if !m.persistent {
		return m.store.Cart(ctx), nil
	}
	m.log.DebugContext(ctx, "cart updated", slog.String("op", op), slog.Int("items", len(items)), slog.Int("units", items.Count()))

	m.publish(items)
	return items.Clone(), nil
}

// publish must be called with m.mu held.
func (m *Manager) publish(items domain.Cart) {
	m.events.Updated.Publish(Snapshot{
		Revision: m.revision.Add(1),
		Items:    items,
	})
}
