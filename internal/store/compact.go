package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"offerwatch/internal/offer"
)

// CompactResult describes one compaction.
type CompactResult struct {
	Kept      int
	Dropped   int
	NewToday  int
	Rewritten bool
}

// Compact removes rows whose business key was already seen earlier in
// the file, then reports how many surviving rows were collected on
// today's date. The store is rewritten through a temp file and a rename,
// so a failure leaves the original untouched.
func Compact(ctx context.Context, path string, today time.Time) (int, error) {
	res, err := CompactDetailed(ctx, path, today)
	return res.NewToday, err
}

// CompactDetailed is Compact with the full tally.
func CompactDetailed(ctx context.Context, path string, today time.Time) (CompactResult, error) {
	var res CompactResult

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, &CorruptError{Path: path, Reason: "store does not exist", Err: err}
		}
		return res, &IOError{Op: "stat", Path: path, Err: err}
	}

	unlock, err := lockStore(ctx, path)
	if err != nil {
		return res, err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".compact-*")
	if err != nil {
		return res, &IOError{Op: "create temp", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	w := csv.NewWriter(bw)
	if err := w.Write(offer.Columns.Names); err != nil {
		return res, &IOError{Op: "write header", Path: tmpPath, Err: err}
	}

	day := today.Format(offer.DateLayout)
	dateIdx := offer.Columns.DateIndex()
	seen := make(map[string]struct{})
	var werr error

	err = scan(path, func(_, row []string, _ int) error {
		if werr != nil {
			return nil
		}
		key := offer.Columns.KeyHash(row)
		if _, dup := seen[key]; dup {
			res.Dropped++
			return nil
		}
		seen[key] = struct{}{}
		res.Kept++
		if row[dateIdx] == day {
			res.NewToday++
		}
		werr = w.Write(row)
		return nil
	})
	if err != nil {
		return CompactResult{}, err
	}
	if werr != nil {
		return CompactResult{}, &IOError{Op: "write temp", Path: tmpPath, Err: werr}
	}
	if err := ctx.Err(); err != nil {
		return CompactResult{}, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return CompactResult{}, &IOError{Op: "write temp", Path: tmpPath, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return CompactResult{}, &IOError{Op: "write temp", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return CompactResult{}, &IOError{Op: "sync temp", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return CompactResult{}, &IOError{Op: "close temp", Path: tmpPath, Err: err}
	}
	if fi, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpPath, fi.Mode().Perm())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return CompactResult{}, &IOError{Op: "rename", Path: path, Err: err}
	}
	committed = true
	res.Rewritten = true

	log.Printf("[store] compacted path=%s kept=%d dropped=%d new_today=%d", path, res.Kept, res.Dropped, res.NewToday)
	return res, nil
}
