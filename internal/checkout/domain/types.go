package domain

import "github.com/shopspring/decimal"

// QuoteLine prices one cart item against the current catalog. CartPrice is
// the snapshot taken when the item was first added.
type QuoteLine struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	CartPrice decimal.Decimal `json:"cart_price"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (l QuoteLine) PriceChanged() bool {
	return !l.CartPrice.Equal(l.UnitPrice)
}

type Quote struct {
	Lines []QuoteLine     `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// PriceChanged reports whether any line moved since it was added to the cart.
func (q Quote) PriceChanged() bool {
	for _, l := range q.Lines {
		if l.PriceChanged() {
			return true
		}
	}
	return false
}
