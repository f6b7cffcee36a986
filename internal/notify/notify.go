// Package notify carries user-facing notifications (toasts) raised as a side
// effect of cart actions.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/storefront-cart/internal/broadcast"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier receives notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc allows plain functions to satisfy Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (fn NotifierFunc) Notify(ctx context.Context, n Notification) {
	if fn == nil {
		return
	}
	fn(ctx, n)
}

// Fanout forwards every notification to each non-nil notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	if len(f) == 0 {
		return
	}
	n = Normalize(n)
	if ctx == nil {
		ctx = context.Background()
	}
	for _, notifier := range f {
		if notifier == nil {
			continue
		}
		notifier.Notify(ctx, n)
	}
}

// Normalize trims text, defaults the variant and stamps the time.
func Normalize(n Notification) Notification {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	return n
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	level := slog.LevelInfo
	if n.Variant == VariantDestructive {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "notification",
		slog.String("title", n.Title),
		slog.String("description", n.Description),
		slog.String("variant", string(n.Variant)),
	)
}

// Broadcast publishes notifications to in-process subscribers, such as
// connected UI surfaces.
func Broadcast(ch broadcast.Broadcaster[Notification]) Notifier {
	return NotifierFunc(func(_ context.Context, n Notification) {
		ch.Publish(n)
	})
}

// Capture records notifications for assertions in tests.
type Capture struct {
	mu            sync.Mutex
	notifications []Notification
}

func (c *Capture) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, Normalize(n))
}

func (c *Capture) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notifications...)
}
