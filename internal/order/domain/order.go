package domain

import (
	"time"

	cart "github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	"github.com/shopspring/decimal"
)

const StatusPending = "PENDING"

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Status    string          `json:"status"`
	Items     cart.Cart       `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}
