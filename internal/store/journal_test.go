package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewJournal(db)
}

func TestJournal_StartFinishRecent(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)
	start := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	id, err := j.StartRun(ctx, "data scientist", "/tmp/offers.csv", start)
	require.NoError(t, err)

	open, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, -1, open[0].NewEntries)
	assert.True(t, open[0].FinishedAt.IsZero())

	require.NoError(t, j.FinishRun(ctx, Run{
		ID:         id,
		FinishedAt: start.Add(3 * time.Minute),
		Links:      12,
		Appended:   10,
		Skipped:    2,
		NewEntries: 4,
		Notified:   true,
	}))

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "data scientist", r.Query)
	assert.True(t, start.Equal(r.StartedAt))
	assert.Equal(t, 12, r.Links)
	assert.Equal(t, 10, r.Appended)
	assert.Equal(t, 2, r.Skipped)
	assert.Equal(t, 4, r.NewEntries)
	assert.True(t, r.Notified)
}

func TestJournal_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, q := range []string{"a", "b", "c"} {
		_, err := j.StartRun(ctx, q, "s.csv", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	runs, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Query)
	assert.Equal(t, "b", runs[1].Query)
}

func TestJournal_Prune(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := j.StartRun(ctx, "old", "s.csv", now.AddDate(0, -4, 0))
	require.NoError(t, err)
	_, err = j.StartRun(ctx, "new", "s.csv", now.Add(-time.Hour))
	require.NoError(t, err)

	n, err := j.Prune(ctx, 90*24*time.Hour, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].Query)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db.Pool))
	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 2, v)
}
