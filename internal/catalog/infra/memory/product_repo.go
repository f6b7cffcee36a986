// Package memory is a read-only, in-process catalog used by the storefront
// binary in place of a remote product service.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	"github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
)

//go:embed products.json
var defaultProducts []byte

type ProductRepo struct {
	products []domain.Product
	byID     map[int64]int
}

// NewProductRepo validates products and keeps them in the given order.
func NewProductRepo(products []domain.Product) (*ProductRepo, error) {
	r := &ProductRepo{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[int64]int, len(products)),
	}
	for _, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("product %q: id must be positive", p.Title)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d: price must not be negative", p.ID)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id", p.ID)
		}
		r.byID[p.ID] = len(r.products)
		r.products = append(r.products, p)
	}
	return r, nil
}

// Load decodes a JSON array of products.
func Load(r io.Reader) (*ProductRepo, error) {
	var products []domain.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewProductRepo(products)
}

// Open loads the catalog from path, or the built-in one when path is empty.
func Open(path string) (*ProductRepo, error) {
	if strings.TrimSpace(path) == "" {
		return Load(bytes.NewReader(defaultProducts))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// All returns every product in catalog order.
func (r *ProductRepo) All() []domain.Product {
	return slices.Clone(r.products)
}

func (r *ProductRepo) Get(_ context.Context, id int64) (domain.Product, error) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	return r.products[i], nil
}

func (r *ProductRepo) List(_ context.Context, category string, limit int) ([]domain.Product, error) {
	out := make([]domain.Product, 0, min(limit, len(r.products)))
	for _, p := range r.products {
		if len(out) >= limit {
			break
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
