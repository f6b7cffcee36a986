package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	cart "github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	"github.com/dwikikusuma/storefront-cart/internal/order/domain"
	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty")

type Service struct {
	store OrderStore
	now   func() time.Time
}

func NewService(store OrderStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Record appends an order built from items to the history. It does not
// touch the cart; clearing it is the caller's decision.
func (s *Service) Record(ctx context.Context, userID string, items cart.Cart) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("item %d: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.Price.IsNegative() {
			return domain.Order{}, fmt.Errorf("item %d: price cannot be negative, got %s", i, item.Price)
		}
	}

	order := domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.StatusPending,
		Items:     items.Clone(),
		Total:     items.Total(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// History lists recorded orders, most recent first.
func (s *Service) History(ctx context.Context) []domain.Order {
	return s.store.Orders(ctx)
}
