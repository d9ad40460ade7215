package storage

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// IDCounter hands out per-prefix sequential counters starting at 1.
type IDCounter struct {
	db *DB
}

// NewIDCounter creates an IDCounter on db.
func NewIDCounter(db *DB) *IDCounter {
	return &IDCounter{db: db}
}

// Next increments and returns the counter for prefix.
func (c *IDCounter) Next(ctx context.Context, prefix string) (int64, error) {
	var value int64
	err := c.db.withTx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO id_counters (prefix, value) VALUES (?, 1)
			ON CONFLICT (prefix) DO UPDATE SET value = value + 1`, &sqlitex.ExecOptions{
			Args: []any{prefix},
		})
		if err != nil {
			return err
		}
		return sqlitex.Execute(conn, `SELECT value FROM id_counters WHERE prefix = ?`, &sqlitex.ExecOptions{
			Args: []any{prefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing id counter %s: %w", prefix, err)
	}
	return value, nil
}
