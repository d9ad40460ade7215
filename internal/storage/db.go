// Package storage persists tasks, notifications, users and projects in
// SQLite, records every row change in an outbox read by change feed
// consumers, and keeps device-scoped snapshots as YAML files.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// schema is applied on open. Timestamps are Unix nanoseconds (UTC).
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	operator_number TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	leader_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	total_time_spent INTEGER NOT NULL DEFAULT 0 CHECK (total_time_spent >= 0),
	assigned_to      TEXT NOT NULL,
	project_id       TEXT NOT NULL,
	created_by       TEXT NOT NULL DEFAULT '',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	completed_at     INTEGER,
	version          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_assigned_to ON tasks (assigned_to, created_at DESC);
CREATE INDEX IF NOT EXISTS tasks_project_id ON tasks (project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	task_id    TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	type       TEXT NOT NULL,
	is_read    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	dedup_key  TEXT UNIQUE
);
CREATE INDEX IF NOT EXISTS notifications_unread ON notifications (user_id, is_read, created_at DESC);

CREATE TABLE IF NOT EXISTS changes (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	tbl     TEXT NOT NULL,
	type    TEXT NOT NULL,
	payload BLOB NOT NULL,
	at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feed_offsets (
	consumer TEXT PRIMARY KEY,
	seq      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS id_counters (
	prefix TEXT PRIMARY KEY,
	value  INTEGER NOT NULL
);
`

// DBConfig holds the parameters for opening the database.
type DBConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string
	// PoolSize defaults to 4 when zero or negative.
	PoolSize int
	Logger   *zap.Logger
}

// DB is a pool of SQLite connections sharing one database file.
// Each goroutine takes its own connection.
type DB struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
	path   string
}

// OpenDB opens the pool, applies connection pragmas, and creates the
// schema if needed. The caller must call Close.
func OpenDB(ctx context.Context, cfg DBConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("opening database: path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Path, err)
	}

	db := &DB{pool: pool, logger: logger, path: cfg.Path}
	if err := db.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("sqlite pool opened", zap.String("path", cfg.Path), zap.Int("pool_size", poolSize))
	return db, nil
}

// Close closes all connections. It blocks until borrowed connections
// are returned.
func (db *DB) Close() error {
	if err := db.pool.Close(); err != nil {
		db.logger.Error("sqlite pool close error", zap.String("path", db.path), zap.Error(err))
		return fmt.Errorf("closing database %s: %w", db.path, err)
	}
	db.logger.Info("sqlite pool closed", zap.String("path", db.path))
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	conn, err := db.take(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (db *DB) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking connection: %w", err)
	}
	return conn, nil
}

// withConn runs fn on a pooled connection.
func (db *DB) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := db.take(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Put(conn)
	return fn(conn)
}

// withTx runs fn inside an IMMEDIATE transaction. The transaction is
// rolled back if fn returns an error.
func (db *DB) withTx(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := db.take(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer endTransaction(&err)

	return fn(conn)
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}
