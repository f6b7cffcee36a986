// Package storage persists the cart, the order history and the current user
// for one profile.
//
// Reads never fail: a missing, unreadable or malformed value is logged and
// replaced by the empty value of its type. Writes to an unavailable backend
// are no-ops; writes that a real backend rejects are returned to the caller.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	cart "github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	order "github.com/dwikikusuma/storefront-cart/internal/order/domain"
	user "github.com/dwikikusuma/storefront-cart/internal/user/domain"
)

const (
	CartKey   = "ecommerce_cart"
	OrdersKey = "ecommerce_orders"
	UserKey   = "ecommerce_user"
)

type Store struct {
	backend Backend
	log     *slog.Logger
}

func New(backend Backend, log *slog.Logger) *Store {
	if backend == nil {
		backend = Discard()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, log: log}
}

// Available reports whether the backend keeps anything.
func (s *Store) Available() bool {
	return s.backend.Available()
}

func (s *Store) Cart(ctx context.Context) cart.Cart {
	items := load(ctx, s, CartKey, cart.Cart{})
	if items == nil {
		return cart.Cart{}
	}
	return items
}

func (s *Store) SaveCart(ctx context.Context, items cart.Cart) error {
	if items == nil {
		items = cart.Cart{}
	}
	return s.save(ctx, CartKey, items)
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.remove(ctx, CartKey)
}

// Orders returns the order history, most recent first.
func (s *Store) Orders(ctx context.Context) []order.Order {
	orders := load(ctx, s, OrdersKey, []order.Order{})
	if orders == nil {
		return []order.Order{}
	}
	return orders
}

// SaveOrder prepends o to the history.
func (s *Store) SaveOrder(ctx context.Context, o order.Order) error {
	if !s.backend.Available() {
		return nil
	}
	orders := append([]order.Order{o}, s.Orders(ctx)...)
	return s.save(ctx, OrdersKey, orders)
}

func (s *Store) User(ctx context.Context) (user.User, bool) {
	u := load[*user.User](ctx, s, UserKey, nil)
	if u == nil {
		return user.User{}, false
	}
	return *u, true
}

func (s *Store) SaveUser(ctx context.Context, u user.User) error {
	return s.save(ctx, UserKey, u)
}

func (s *Store) ClearUser(ctx context.Context) error {
	return s.remove(ctx, UserKey)
}

func load[T any](ctx context.Context, s *Store, key string, fallback T) T {
	if !s.backend.Available() {
		return fallback
	}
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "storage read failed", slog.String("key", key), slog.Any("err", err))
		return fallback
	}
	if !ok || raw == "" {
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.log.WarnContext(ctx, "failed to parse storage value", slog.String("key", key), slog.Any("err", err))
		return fallback
	}
	return out
}

func (s *Store) save(ctx context.Context, key string, value any) error {
	if !s.backend.Available() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	if !s.backend.Available() {
		return nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
