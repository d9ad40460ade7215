package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const notificationColumns = `id, user_id, task_id, message, type, is_read, created_at, dedup_key`

// NotificationStore persists notifications. The dedup key is unique, so
// deriving the same notification twice stores it once.
type NotificationStore struct {
	db  *DB
	now func() time.Time
}

// NewNotificationStore creates a NotificationStore on db.
func NewNotificationStore(db *DB) *NotificationStore {
	return &NotificationStore{db: db, now: time.Now}
}

// Insert stores n. It returns an error wrapping ErrDuplicate when a
// notification with the same dedup key or id exists.
func (s *NotificationStore) Insert(ctx context.Context, n models.Notification) error {
	if n.ID == "" || n.UserID == "" {
		return fmt.Errorf("inserting notification: id and user_id are required")
	}
	var dedupKey any
	if n.DedupKey != "" {
		dedupKey = n.DedupKey
	}

	return s.db.withTx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO notifications (`+notificationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{
				n.ID, n.UserID, n.TaskID, n.Message, string(n.Type),
				boolInt(n.Read), toNanos(n.CreatedAt), dedupKey,
			},
		})
		if err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("inserting notification %s: %w", n.ID, ErrDuplicate)
		}
		return appendChange(conn, models.TableNotifications, models.ChangeInsert,
			changePayload{NewNotification: &n}, s.now())
	})
}

// Get returns the notification with id.
func (s *NotificationStore) Get(ctx context.Context, id string) (*models.Notification, error) {
	var n *models.Notification
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		n, err = getNotification(conn, id)
		return err
	})
	return n, err
}

// ListUnread returns the unread notifications of userID, newest first.
func (s *NotificationStore) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.list(ctx, `WHERE user_id = ? AND is_read = 0`, userID)
}

// ListForUser returns every notification of userID, newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.list(ctx, `WHERE user_id = ?`, userID)
}

func (s *NotificationStore) list(ctx context.Context, where string, args ...any) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+notificationColumns+` FROM notifications `+where+`
			ORDER BY created_at DESC, id DESC`, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, scanNotification(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// MarkRead sets the read flag of id. It reports false when the
// notification was already read. The flag is never cleared.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) (bool, error) {
	changed := false
	err := s.db.withTx(ctx, func(conn *sqlite.Conn) error {
		old, err := getNotification(conn, id)
		if err != nil {
			return err
		}
		if old.Read {
			return nil
		}
		if err := sqlitex.Execute(conn, `UPDATE notifications SET is_read = 1 WHERE id = ? AND is_read = 0`,
			&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
			return fmt.Errorf("marking notification %s read: %w", id, err)
		}
		if conn.Changes() == 0 {
			return nil
		}
		changed = true
		updated := *old
		updated.Read = true
		return appendChange(conn, models.TableNotifications, models.ChangeUpdate,
			changePayload{OldNotification: old, NewNotification: &updated}, s.now())
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func getNotification(conn *sqlite.Conn, id string) (*models.Notification, error) {
	var n *models.Notification
	err := sqlitex.Execute(conn, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			v := scanNotification(stmt)
			n = &v
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading notification %s: %w", id, err)
	}
	if n == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return n, nil
}

func scanNotification(stmt *sqlite.Stmt) models.Notification {
	n := models.Notification{
		ID:        stmt.ColumnText(0),
		UserID:    stmt.ColumnText(1),
		TaskID:    stmt.ColumnText(2),
		Message:   stmt.ColumnText(3),
		Type:      models.NotificationType(stmt.ColumnText(4)),
		Read:      stmt.ColumnInt64(5) != 0,
		CreatedAt: fromNanos(stmt.ColumnInt64(6)),
	}
	if !stmt.ColumnIsNull(7) {
		n.DedupKey = stmt.ColumnText(7)
	}
	return n
}
