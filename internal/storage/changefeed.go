package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// appendChange records one row mutation in the outbox. It must run in
// the transaction that performed the mutation.
func appendChange(conn *sqlite.Conn, table models.Table, kind models.ChangeType, p changePayload, at time.Time) error {
	data, err := encodePayload(p)
	if err != nil {
		return fmt.Errorf("encoding %s change: %w", table, err)
	}
	err = sqlitex.Execute(conn, `INSERT INTO changes (tbl, type, payload, at) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{string(table), string(kind), data, toNanos(at)}})
	if err != nil {
		return fmt.Errorf("appending %s change: %w", table, err)
	}
	return nil
}

// ChangeFeed reads the outbox. Named consumers keep a durable offset and
// see every change at least once: Poll returns changes after the last
// acknowledged sequence, and only Ack moves the offset.
type ChangeFeed struct {
	db *DB
}

// NewChangeFeed creates a ChangeFeed on db.
func NewChangeFeed(db *DB) *ChangeFeed {
	return &ChangeFeed{db: db}
}

// Poll returns up to limit changes after consumer's offset, oldest first.
func (f *ChangeFeed) Poll(ctx context.Context, consumer string, limit int) ([]models.ChangeEvent, error) {
	offset, err := f.Offset(ctx, consumer)
	if err != nil {
		return nil, err
	}
	return f.Since(ctx, offset, limit)
}

// Since returns up to limit changes with a sequence greater than after,
// without touching any consumer offset.
func (f *ChangeFeed) Since(ctx context.Context, after int64, limit int) ([]models.ChangeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		events []models.ChangeEvent
		decErr error
	)
	err := f.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT seq, tbl, type, payload, at FROM changes
			WHERE seq > ? ORDER BY seq LIMIT ?`, &sqlitex.ExecOptions{
			Args: []any{after, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				buf := make([]byte, stmt.ColumnLen(3))
				stmt.ColumnBytes(3, buf)
				p, err := decodePayload(buf)
				if err != nil {
					decErr = fmt.Errorf("decoding change %d: %w", stmt.ColumnInt64(0), err)
					return decErr
				}
				events = append(events, models.ChangeEvent{
					Seq:             stmt.ColumnInt64(0),
					Table:           models.Table(stmt.ColumnText(1)),
					Type:            models.ChangeType(stmt.ColumnText(2)),
					OldTask:         p.OldTask,
					NewTask:         p.NewTask,
					OldNotification: p.OldNotification,
					NewNotification: p.NewNotification,
					At:              fromNanos(stmt.ColumnInt64(4)),
				})
				return nil
			},
		})
	})
	if decErr != nil {
		return nil, decErr
	}
	if err != nil {
		return nil, fmt.Errorf("reading changes after %d: %w", after, err)
	}
	return events, nil
}

// Ack records that consumer has handled every change up to seq. Offsets
// never move backwards. Acknowledged rows stay in the outbox so readers
// without an offset can still page through them with Since.
func (f *ChangeFeed) Ack(ctx context.Context, consumer string, seq int64) error {
	err := f.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO feed_offsets (consumer, seq) VALUES (?, ?)
			ON CONFLICT (consumer) DO UPDATE SET seq = max(seq, excluded.seq)`,
			&sqlitex.ExecOptions{Args: []any{consumer, seq}})
	})
	if err != nil {
		return fmt.Errorf("acknowledging %s at %d: %w", consumer, seq, err)
	}
	return nil
}

// Offset returns the last acknowledged sequence of consumer, or 0.
func (f *ChangeFeed) Offset(ctx context.Context, consumer string) (int64, error) {
	var seq int64
	err := f.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT seq FROM feed_offsets WHERE consumer = ?`, &sqlitex.ExecOptions{
			Args: []any{consumer},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				seq = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("reading offset of %s: %w", consumer, err)
	}
	return seq, nil
}

// Head returns the newest sequence in the outbox, or 0 when empty.
func (f *ChangeFeed) Head(ctx context.Context) (int64, error) {
	var seq int64
	err := f.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT COALESCE(MAX(seq), 0) FROM changes`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				seq = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("reading change feed head: %w", err)
	}
	return seq, nil
}
