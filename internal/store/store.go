package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	project_goal TEXT DEFAULT '',
	constraints TEXT DEFAULT '',
	architecture_notes TEXT DEFAULT '',
	links TEXT DEFAULT '',
	reference_docs TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	success_criteria TEXT DEFAULT '',
	status TEXT NOT NULL,
	branch_name TEXT,
	worktree_path TEXT,
	session_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	command TEXT NOT NULL,
	cwd TEXT NOT NULL,
	pid INTEGER NOT NULL,
	status TEXT NOT NULL,
	last_activity_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_threads (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	details_json TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_memory (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tickets_project ON tickets(project_id);
CREATE INDEX IF NOT EXISTS idx_tickets_session ON tickets(session_id);
CREATE INDEX IF NOT EXISTS idx_threads_project ON chat_threads(project_id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON chat_messages(thread_id);
CREATE INDEX IF NOT EXISTS idx_activity_project ON activity_log(project_id);
CREATE INDEX IF NOT EXISTS idx_memory_project ON project_memory(project_id);
`

// Store is a SQLite-backed metadata store. Safe for concurrent use; each
// call borrows a pooled connection.
type Store struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
}

// Open creates (if needed) and opens the database at path. Use ":memory:"
// with pool size 1 in tests.
func Open(path string, poolSize int, logger *zap.Logger) (*Store, error) {
	if poolSize <= 0 {
		poolSize = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			pragmas := []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA synchronous=NORMAL",
				"PRAGMA busy_timeout=5000",
			}
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("store opened", zap.String("path", path), zap.Int("pool_size", poolSize))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close shuts the pool down. Blocks until borrowed connections return.
func (s *Store) Close() error {
	return s.pool.Close()
}

// exec runs a statement without results.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}

// query runs a statement, invoking fn per result row.
func (s *Store) query(ctx context.Context, query string, fn func(stmt *sqlite.Stmt) error, args ...any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: fn,
	})
}

// now returns the canonical timestamp format used across all tables.
// Nanosecond precision keeps created_at ordering stable for rows inserted
// within the same second.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
