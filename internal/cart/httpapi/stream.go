package httpapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	"github.com/dwikikusuma/storefront-cart/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	frameCart         = "cart"
	frameOpen         = "open"
	frameNotification = "notification"

	streamBuffer = 64
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

type frame struct {
	Type         string               `json:"type"`
	Cart         *cartResponse        `json:"cart,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// stream turns a websocket into a cart surface. Callbacks never block the
// mutating goroutine: a client that falls streamBuffer frames behind is
// disconnected and is expected to reconnect, which replays the current cart.
func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WarnContext(c.Request.Context(), "websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	frames := make(chan frame, streamBuffer)
	lagged := make(chan struct{})
	var lagOnce sync.Once

	push := func(f frame) {
		select {
		case frames <- f:
		default:
			lagOnce.Do(func() { close(lagged) })
		}
	}

	unsubscribeOpen := s.cart.OnCartOpen(func() {
		push(frame{Type: frameOpen})
	})
	defer unsubscribeOpen()

	unsubscribeNotify := s.notifications.Subscribe(func(n notify.Notification) {
		push(frame{Type: frameNotification, Notification: &n})
	})
	defer unsubscribeNotify()

	// Subscribed last: the catch-up frame tells the client every other
	// subscription is already live.
	unsubscribeCart := s.cart.OnCartUpdated(ctx, func(items domain.Cart) {
		push(frame{Type: frameCart, Cart: newCartResponse(items)})
	})
	defer unsubscribeCart()

	// Incoming messages are ignored; reading is only needed to notice the
	// client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case f := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				s.log.DebugContext(ctx, "websocket write failed", slog.Any("err", err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-lagged:
			s.log.WarnContext(ctx, "websocket client too slow, closing")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
