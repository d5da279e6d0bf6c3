package shared

import (
	"context"
	"log/slog"
	"sync"
)

// Notification is a user-facing outcome message (a toast).
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Success     bool   `json:"success"`
}

// Kind returns the presentation style of the notification.
func (n Notification) Kind() string {
	if n.Success {
		return "success"
	}
	return "destructive"
}

// Notifier presents notifications to the operator.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Notifiers fans a notification out to every non-nil notifier.
type Notifiers []Notifier

// Notify delivers n to each notifier in order.
func (ns Notifiers) Notify(ctx context.Context, n Notification) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at info level, or warn level for failures.
func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	if l.Logger == nil {
		return
	}
	level := slog.LevelInfo
	if !n.Success {
		level = slog.LevelWarn
	}
	l.Logger.Log(ctx, level, "notification", slog.String("title", n.Title), slog.String("description", n.Description))
}

// Toasts queues notifications until the next rendered page pops them.
type Toasts struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewToasts returns a queue holding at most limit notifications; older ones are dropped.
func NewToasts(limit int) *Toasts {
	if limit <= 0 {
		limit = 1
	}
	return &Toasts{limit: limit}
}

// Notify queues n.
func (t *Toasts) Notify(_ context.Context, n Notification) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, n)
	if over := len(t.items) - t.limit; over > 0 {
		t.items = t.items[over:]
	}
}

// Pop retrieves and clears the oldest queued notification.
func (t *Toasts) Pop() *Notification {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return nil
	}
	msg := t.items[0]
	t.items = t.items[1:]
	return &msg
}
