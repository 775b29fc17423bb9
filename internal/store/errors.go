package store

import (
	"errors"
	"fmt"
)

// ErrCorrupt is wrapped by every CorruptError.
var ErrCorrupt = errors.New("store corrupt")

// IOError is a failure to open, append to or rewrite the store file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptError means the store is missing or cannot be read back with
// the expected schema. Line is 1-based, 0 when not tied to a line.
type CorruptError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	msg := fmt.Sprintf("store %s: %s", e.Path, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("store %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorrupt}
	}
	return []error{ErrCorrupt, e.Err}
}
