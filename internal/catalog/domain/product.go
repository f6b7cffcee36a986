package domain

import "github.com/shopspring/decimal"

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a read-only catalog record. The cart copies it by value, so a
// later catalog change never reaches items that are already in a cart.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Rating      Rating          `json:"rating"`
}
