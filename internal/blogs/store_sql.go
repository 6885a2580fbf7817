package blogs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLStore)(nil)

type sqlDialect struct {
	schema string
	load   string
	save   string
}

var (
	sqliteDialect = sqlDialect{
		schema: `CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`,
		load: `SELECT value FROM kv_store WHERE key = ?`,
		save: `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	}
	postgresDialect = sqlDialect{
		schema: `CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		load: `SELECT value FROM kv_store WHERE key = $1`,
		save: `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	}
)

// SQLStore keeps the serialized collection as one row of a key/value table.
type SQLStore struct {
	db      *sql.DB
	key     string
	dialect sqlDialect
	logger  *slog.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database at path and ensures
// the key/value table exists.
func NewSQLiteStore(path, key string, logger *slog.Logger) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL keeps readers unblocked during the full-collection rewrite.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(db, key, sqliteDialect, logger)
}

// NewPostgresStore uses an already opened Postgres handle.
func NewPostgresStore(db *sql.DB, key string, logger *slog.Logger) (*SQLStore, error) {
	return newSQLStore(db, key, postgresDialect, logger)
}

// OpenPostgresStore opens a Postgres connection from a DSN.
func OpenPostgresStore(ctx context.Context, dsn, key string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, key, logger)
}

func newSQLStore(db *sql.DB, key string, d sqlDialect, logger *slog.Logger) (*SQLStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if _, err := db.Exec(d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLStore{db: db, key: key, dialect: d, logger: loggerOrDefault(logger)}, nil
}

func (s *SQLStore) Load(ctx context.Context) ([]Blog, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.load, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []Blog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", s.key, err)
	}
	return decodeRecords(s.logger, s.key, []byte(value)), nil
}

func (s *SQLStore) SaveAll(ctx context.Context, records []Blog) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.save, s.key, string(data)); err != nil {
		return fmt.Errorf("save %q: %w", s.key, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
