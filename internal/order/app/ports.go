package app

import (
	"context"

	"github.com/dwikikusuma/storefront-cart/internal/order/domain"
)

// OrderStore keeps the order history of the current profile, most recent first.
type OrderStore interface {
	Orders(ctx context.Context) []domain.Order
	SaveOrder(ctx context.Context, order domain.Order) error
}
