// Package sqlite is a durable cache backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"llm-dev-ops/connector-hub/pkg/cache"
)

// Config configures the SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Backend stores entries in a single table. It runs in WAL mode with one
// connection, since SQLite supports a single writer.
type Backend struct {
	db        *sql.DB
	closeOnce sync.Once

	getStmt    *sql.Stmt
	hitStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	sweepStmt  *sql.Stmt
}

// New opens (or creates) the cache database at path.
func New(path string) (*Backend, error) {
	return NewWithConfig(Config{DBPath: path})
}

// NewWithConfig opens the cache database with custom configuration.
func NewWithConfig(cfg Config) (*Backend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &Backend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := b.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return b, nil
}

func (b *Backend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		fingerprint TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		hits INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *Backend) prepareStatements() error {
	var err error

	b.getStmt, err = b.db.Prepare(`
		SELECT payload, expires_at, hits FROM cache_entries WHERE fingerprint = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	b.hitStmt, err = b.db.Prepare(`
		UPDATE cache_entries SET hits = hits + 1 WHERE fingerprint = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare hit statement: %w", err)
	}

	b.setStmt, err = b.db.Prepare(`
		INSERT INTO cache_entries (fingerprint, payload, created_at, expires_at, hits)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (fingerprint) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hits = 0
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare set statement: %w", err)
	}

	b.deleteStmt, err = b.db.Prepare(`DELETE FROM cache_entries WHERE fingerprint = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	b.sweepStmt, err = b.db.Prepare(`DELETE FROM cache_entries WHERE expires_at <= ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare sweep statement: %w", err)
	}

	return nil
}

// Name returns "sqlite".
func (b *Backend) Name() string { return "sqlite" }

// Get loads the entry for fp and bumps its hit count.
func (b *Backend) Get(ctx context.Context, fp string) (*cache.Entry, error) {
	var payload []byte
	var expiresAt, hits int64

	err := b.getStmt.QueryRowContext(ctx, fp).Scan(&payload, &expiresAt, &hits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}

	if time.Now().UnixNano() >= expiresAt {
		if _, err := b.deleteStmt.ExecContext(ctx, fp); err != nil {
			return nil, fmt.Errorf("failed to delete expired entry: %w", err)
		}
		return nil, nil
	}

	e, err := cache.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := b.hitStmt.ExecContext(ctx, fp); err != nil {
		return nil, fmt.Errorf("failed to record hit: %w", err)
	}
	e.Hits = hits + 1
	return e, nil
}

// Set writes e, replacing any existing row and resetting its hit count.
func (b *Backend) Set(ctx context.Context, fp string, e *cache.Entry, ttl time.Duration) error {
	payload, err := cache.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	created := e.CreatedAt.UnixNano()
	if _, err := b.setStmt.ExecContext(ctx, fp, payload, created, e.CreatedAt.Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// Invalidate deletes the row for fp.
func (b *Backend) Invalidate(ctx context.Context, fp string) error {
	if _, err := b.deleteStmt.ExecContext(ctx, fp); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// Sweep deletes expired rows.
func (b *Backend) Sweep(ctx context.Context) (int, error) {
	res, err := b.sweepStmt.ExecContext(ctx, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept entries: %w", err)
	}
	return int(n), nil
}

// Close closes the prepared statements and the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{b.getStmt, b.hitStmt, b.setStmt, b.deleteStmt, b.sweepStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = b.db.Close()
	})
	return err
}
