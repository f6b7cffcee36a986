package app

import (
	"context"

	"github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
)

// ProductRepo is the read side of the catalog collaborator.
type ProductRepo interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context, category string, limit int) ([]domain.Product, error)
}
