package httpapi

import (
	"errors"
	"net/http"

	catalogapp "github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	checkoutapp "github.com/dwikikusuma/storefront-cart/internal/checkout/app"
	orderapp "github.com/dwikikusuma/storefront-cart/internal/order/app"
)

var errNotLoggedIn = errors.New("you need to login first")

// httpStatusFromError maps domain errors onto an HTTP status and a stable
// machine-readable code.
func httpStatusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, catalogapp.ErrInvalidInput), errors.Is(err, orderapp.ErrEmptyCart),
		errors.Is(err, checkoutapp.ErrEmptyCart):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, catalogapp.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, errNotLoggedIn):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
