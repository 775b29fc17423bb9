package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Run is one journal entry. NewEntries is -1 when the run never reached
// the notification step.
type Run struct {
	ID         int64
	Query      string
	StorePath  string
	StartedAt  time.Time
	FinishedAt time.Time
	Links      int
	Appended   int
	Skipped    int
	NewEntries int
	Notified   bool
	Error      string
}

// Journal records what each invocation did.
type Journal struct {
	db *sql.DB
}

func NewJournal(d *DB) *Journal { return &Journal{db: d.Pool} }

// StartRun inserts an open entry and returns its id.
func (j *Journal) StartRun(ctx context.Context, query, storePath string, at time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
INSERT INTO runs(query, store_path, started_at)
VALUES(?,?,?);`, query, storePath, at.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	log.Printf("[journal] run started id=%d query=%q", id, query)
	return id, nil
}

// FinishRun closes an entry with its tallies.
func (j *Journal) FinishRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
UPDATE runs
SET finished_at = ?, links = ?, appended = ?, skipped = ?,
    new_entries = ?, notified = ?, error = ?
WHERE id = ?;`,
		r.FinishedAt.UTC().Format(time.RFC3339), r.Links, r.Appended, r.Skipped,
		r.NewEntries, boolInt(r.Notified), r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", r.ID, err)
	}
	log.Printf("[journal] run finished id=%d appended=%d skipped=%d new=%d notified=%v",
		r.ID, r.Appended, r.Skipped, r.NewEntries, r.Notified)
	return nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, query, store_path, started_at, finished_at, links, appended,
       skipped, new_entries, notified, error
FROM runs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var notified int
		if err := rows.Scan(
			&r.ID,
			&r.Query,
			&r.StorePath,
			&started,
			&finished,
			&r.Links,
			&r.Appended,
			&r.Skipped,
			&r.NewEntries,
			&notified,
			&r.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		r.Notified = notified != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Prune drops entries older than keep.
func (j *Journal) Prune(ctx context.Context, keep time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-keep).UTC().Format(time.RFC3339)
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
