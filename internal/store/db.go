package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB holds the run journal connection.
type DB struct {
	Pool *sql.DB
}

func OpenDB(path string) (*DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pool.SetMaxOpenConns(1) // single writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if err := Migrate(pool); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &DB{Pool: pool}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// Migrate brings the journal schema up to date, tracked by user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if v < 1 {
		if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  query TEXT NOT NULL,
  store_path TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT '',
  links INTEGER NOT NULL DEFAULT 0,
  appended INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
			return fmt.Errorf("create runs: %w", err)
		}
		if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_runs_started_at
ON runs(started_at);
`); err != nil {
			return fmt.Errorf("create runs index: %w", err)
		}
	}

	// v2 adds the notification outcome.
	if v < 2 {
		if !columnExists(tx, "runs", "new_entries") {
			if _, err := tx.Exec(`ALTER TABLE runs ADD COLUMN new_entries INTEGER NOT NULL DEFAULT -1;`); err != nil {
				return fmt.Errorf("add new_entries: %w", err)
			}
		}
		if !columnExists(tx, "runs", "notified") {
			if _, err := tx.Exec(`ALTER TABLE runs ADD COLUMN notified INTEGER NOT NULL DEFAULT 0;`); err != nil {
				return fmt.Errorf("add notified: %w", err)
			}
		}
		if _, err := tx.Exec(`PRAGMA user_version = 2;`); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return tx.Commit()
}

func columnExists(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRow(query, col).Scan(&one)
	return err == nil
}
