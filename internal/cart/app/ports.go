package app

import (
	"context"

	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	user "github.com/dwikikusuma/storefront-cart/internal/user/domain"
)

// CartStore persists the cart. Cart never fails; it returns an empty cart
// when nothing usable is stored.
type CartStore interface {
	Cart(ctx context.Context) domain.Cart
	SaveCart(ctx context.Context, items domain.Cart) error
	ClearCart(ctx context.Context) error
}

// availability is implemented by stores that can be backed by nothing at all.
type availability interface {
	Available() bool
}

// Identity reports the current user, if any.
type Identity interface {
	User(ctx context.Context) (user.User, bool)
}
