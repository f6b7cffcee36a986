package app

import (
	"github.com/dwikikusuma/storefront-cart/internal/broadcast"
	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
)

const (
	UpdatedSignal = "cart.updated"
	OpenSignal    = "cart.open"
)

// Snapshot is the payload of the updated signal. Revision increases with
// every broadcast of the owning Manager.
type Snapshot struct {
	Revision uint64
	Items    domain.Cart
}

// Events are the two signals a Manager publishes on.
type Events struct {
	Updated broadcast.Broadcaster[Snapshot]
	Opened  broadcast.Broadcaster[struct{}]
}

func NewEvents() Events {
	return Events{
		Updated: broadcast.NewChannel[Snapshot](UpdatedSignal),
		Opened:  broadcast.NewChannel[struct{}](OpenSignal),
	}
}

// DiscardEvents is used in non-interactive contexts: nothing is ever
// delivered and subscriptions are no-ops.
func DiscardEvents() Events {
	return Events{
		Updated: broadcast.Discard[Snapshot](),
		Opened:  broadcast.Discard[struct{}](),
	}
}

func (e Events) withDefaults() Events {
	if e.Updated == nil {
		e.Updated = broadcast.Discard[Snapshot]()
	}
	if e.Opened == nil {
		e.Opened = broadcast.Discard[struct{}]()
	}
	return e
}
