package domain

import (
	catalog "github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

// CartItem is a snapshot of a product taken when it was first added, plus the
// selected quantity. Quantity is always >= 1.
type CartItem struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Cart is ordered by first insertion and holds at most one item per product id.
type Cart []CartItem

// Index returns the position of the item for productID, or -1.
func (c Cart) Index(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// Count is the total number of units, as shown on the navbar badge.
func (c Cart) Count() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Clone returns a non-nil copy that can be changed without touching c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
