package app

import (
	"context"
	"fmt"

	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	catalog "github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
	"github.com/dwikikusuma/storefront-cart/internal/notify"
)

// AddOptions tunes the confirmation shown after a successful add.
type AddOptions struct {
	Silent      bool
	Title       string
	Description string
}

// Actions is what UI surfaces call. It gates adds on a logged-in user and
// raises notifications; the cart itself is owned by Manager.
type Actions struct {
	cart     *Manager
	identity Identity
	notifier notify.Notifier
}

func NewActions(cart *Manager, identity Identity, notifier notify.Notifier) *Actions {
	if notifier == nil {
		notifier = notify.Fanout(nil)
	}
	return &Actions{cart: cart, identity: identity, notifier: notifier}
}

// AddToCart returns added == false without touching the cart when nobody is
// logged in. items is the cart as persisted by this add.
func (a *Actions) AddToCart(ctx context.Context, product catalog.Product, opts AddOptions) (items domain.Cart, added bool, err error) {
	if !a.ensureUser(ctx) {
		return nil, false, nil
	}
	if items, err = a.cart.AddItem(ctx, product); err != nil {
		return nil, false, err
	}
	if opts.Silent {
		return items, true, nil
	}

	title := opts.Title
	if title == "" {
		title = "Added to cart"
	}
	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("%s has been added to your cart", product.Title)
	}
	a.notifier.Notify(ctx, notify.Notification{Title: title, Description: description})
	return items, true, nil
}

func (a *Actions) UpdateQuantity(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	return a.cart.UpdateQuantity(ctx, productID, quantity)
}

// RemoveFromCart always confirms the removal; it cannot be silenced.
func (a *Actions) RemoveFromCart(ctx context.Context, productID int64) (domain.Cart, error) {
	items, err := a.cart.RemoveItem(ctx, productID)
	if err != nil {
		return nil, err
	}
	a.notifier.Notify(ctx, notify.Notification{
		Title:       "Removed from cart",
		Description: "Item has been removed from your cart",
	})
	return items, nil
}

func (a *Actions) ClearCart(ctx context.Context) error {
	return a.cart.Clear(ctx)
}

func (a *Actions) OpenCart() {
	a.cart.OpenCart()
}

func (a *Actions) ensureUser(ctx context.Context) bool {
	if a.identity != nil {
		if _, ok := a.identity.User(ctx); ok {
			return true
		}
	}
	a.notifier.Notify(ctx, notify.Notification{
		Title:       "Please login",
		Description: "You need to login to add items to your cart",
		Variant:     notify.VariantDestructive,
	})
	return false
}
