package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// Inbox is one viewer's unread notification set. It is seeded from the
// persisted unread notifications and kept current from notification change
// events. Read is one-way: once an id is seen read it never returns.
type Inbox struct {
	viewer string
	store  NotificationStore
	events EventLogger
	logger *zap.Logger

	mu     sync.Mutex
	unread map[string]models.Notification
	read   map[string]bool
}

// NewInbox creates an empty inbox for viewer.
func NewInbox(viewer string, store NotificationStore, events EventLogger) *Inbox {
	if events == nil {
		events = nopEventLogger{}
	}
	return &Inbox{
		viewer: viewer,
		store:  store,
		events: events,
		logger: zap.NewNop(),
		unread: make(map[string]models.Notification),
		read:   make(map[string]bool),
	}
}

// WithLogger sets the logger used for event log failures.
func (b *Inbox) WithLogger(logger *zap.Logger) *Inbox {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Seed loads the persisted unread notifications of the viewer.
func (b *Inbox) Seed(ctx context.Context) error {
	notes, err := b.store.ListUnread(ctx, b.viewer)
	if err != nil {
		return fmt.Errorf("seeding inbox for %s: %w", b.viewer, persistenceError(err))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range notes {
		if !n.Read && !b.read[n.ID] {
			b.unread[n.ID] = n
		}
	}
	return nil
}

// Apply folds one change event into the set. Events for other tables or
// other viewers are ignored.
func (b *Inbox) Apply(ev models.ChangeEvent) {
	if ev.Table != models.TableNotifications || ev.NewNotification == nil {
		return
	}
	n := *ev.NewNotification
	if n.UserID != b.viewer {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if n.Read {
		b.read[n.ID] = true
		delete(b.unread, n.ID)
		return
	}
	if ev.Type == models.ChangeInsert && !b.read[n.ID] {
		b.unread[n.ID] = n
	}
}

// Unread returns the unread notifications, newest first.
func (b *Inbox) Unread() []models.Notification {
	b.mu.Lock()
	out := make([]models.Notification, 0, len(b.unread))
	for _, n := range b.unread {
		out = append(out, n)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of unread notifications.
func (b *Inbox) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.unread)
}

// MarkRead persists the read flag and removes id from the set. Marking an
// already read notification is not an error.
func (b *Inbox) MarkRead(ctx context.Context, id string) error {
	changed, err := b.store.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, persistenceError(err))
	}

	b.mu.Lock()
	b.read[id] = true
	delete(b.unread, id)
	b.mu.Unlock()

	if changed {
		if err := b.events.LogEvent("notification.read", map[string]any{"id": id, "user_id": b.viewer}); err != nil {
			b.logger.Warn("writing event log failed", zap.String("type", "notification.read"), zap.Error(err))
		}
	}
	return nil
}
