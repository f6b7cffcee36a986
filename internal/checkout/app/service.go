package app

import (
	"context"
	"errors"
	"fmt"

	cart "github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	catalog "github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
	"github.com/dwikikusuma/storefront-cart/internal/checkout/domain"
	order "github.com/dwikikusuma/storefront-cart/internal/order/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CartSource is satisfied by the cart Manager.
type CartSource interface {
	Items(ctx context.Context) cart.Cart
	Deduct(ctx context.Context, ordered cart.Cart) (cart.Cart, error)
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

type OrderRecorder interface {
	Record(ctx context.Context, userID string, items cart.Cart) (order.Order, error)
}

type Service struct {
	Cart    CartSource
	Catalog CatalogReader
	Orders  OrderRecorder

	maxConcurrent int
}

func NewService(cart CartSource, catalog CatalogReader, orders OrderRecorder, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Service{
		Cart:          cart,
		Catalog:       catalog,
		Orders:        orders,
		maxConcurrent: maxConcurrent,
	}
}

var ErrEmptyCart = errors.New("cart is empty")

// Quote prices the current cart against the catalog, looking products up
// concurrently.
func (s *Service) Quote(ctx context.Context) (domain.Quote, error) {
	return s.quote(ctx, s.Cart.Items(ctx))
}

// Place records an order for userID at current catalog prices and then takes
// the ordered quantities out of the cart. Anything added to the cart while the
// order was being placed stays there. A failed deduction still returns the
// recorded order.
func (s *Service) Place(ctx context.Context, userID string) (order.Order, error) {
	items := s.Cart.Items(ctx)
	quote, err := s.quote(ctx, items)
	if err != nil {
		return order.Order{}, err
	}

	for i := range items {
		items[i].Price = quote.Lines[i].UnitPrice
	}

	placed, err := s.Orders.Record(ctx, userID, items)
	if err != nil {
		return order.Order{}, err
	}
	if _, err := s.Cart.Deduct(ctx, items); err != nil {
		return placed, fmt.Errorf("order %s recorded but cart not updated: %w", placed.ID, err)
	}
	return placed, nil
}

func (s *Service) quote(ctx context.Context, items cart.Cart) (domain.Quote, error) {
	if len(items) == 0 {
		return domain.Quote{}, ErrEmptyCart
	}

	lines := make([]domain.QuoteLine, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range items {
		g.Go(func() error {
			it := items[idx]
			if it.Quantity <= 0 {
				return fmt.Errorf("quantity must be greater than zero: %d", it.Quantity)
			}

			product, err := s.Catalog.GetProduct(ctx, it.ID)
			if err != nil {
				return fmt.Errorf("failed to get product %d: %w", it.ID, err)
			}

			lines[idx] = domain.QuoteLine{
				ProductID: product.ID,
				Title:     product.Title,
				Quantity:  it.Quantity,
				CartPrice: it.Price,
				UnitPrice: product.Price,
				LineTotal: product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Quote{}, err
	}

	quote := domain.Quote{Lines: lines, Total: decimal.Zero}
	for _, line := range lines {
		quote.Total = quote.Total.Add(line.LineTotal)
	}
	return quote, nil
}
