package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"offerwatch/internal/offer"
)

// Append adds one record to the CSV store at path, creating it if needed.
// The header is written only when the file is empty. Existing bytes are
// never rewritten.
func Append(ctx context.Context, rec offer.Offer, schema offer.Schema, path string) error {
	if err := rec.Validate(); err != nil {
		return &IOError{Op: "append", Path: path, Err: err}
	}
	row := rec.Row()
	if len(row) != len(schema.Names) {
		return &IOError{Op: "append", Path: path, Err: fmt.Errorf("record has %d fields, schema has %d", len(row), len(schema.Names))}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: path, Err: err}
		}
	}

	unlock, err := lockStore(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return &IOError{Op: "stat", Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(schema.Names); err != nil {
			return &IOError{Op: "write header", Path: path, Err: err}
		}
	}
	if err := w.Write(row); err != nil {
		return &IOError{Op: "append", Path: path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &IOError{Op: "append", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &IOError{Op: "sync", Path: path, Err: err}
	}
	return f.Close()
}

// Load reads the whole store back, mapping each row by the column names
// the file declares.
func Load(path string) ([]offer.Offer, error) {
	var out []offer.Offer
	err := scan(path, func(header, row []string, _ int) error {
		o, err := offer.FromRow(header, row)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

// scan streams the store, validating the header against offer.Columns,
// the column count and the encoding of every row.
func scan(path string, fn func(header, row []string, line int) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CorruptError{Path: path, Reason: "store does not exist", Err: err}
		}
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))

	header, err := r.Read()
	if err == io.EOF {
		return &CorruptError{Path: path, Line: 1, Reason: "missing header"}
	}
	if err != nil {
		return &CorruptError{Path: path, Line: 1, Reason: "unreadable header", Err: err}
	}
	if !offer.Columns.Equal(header) {
		return &CorruptError{Path: path, Line: 1, Reason: fmt.Sprintf("header %q does not match schema v%d", header, offer.Columns.Version)}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			return &CorruptError{Path: path, Line: line, Reason: "malformed row", Err: err}
		}
		line, _ := r.FieldPos(0)
		for _, v := range row {
			if !utf8.ValidString(v) {
				return &CorruptError{Path: path, Line: line, Reason: "invalid UTF-8"}
			}
		}
		if err := fn(header, row, line); err != nil {
			return &CorruptError{Path: path, Line: line, Reason: "bad row", Err: err}
		}
	}
}
