package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 100 * time.Millisecond

// lockStore takes the advisory lock shared by Append and Compact so two
// processes never interleave writes on the same file.
func lockStore(ctx context.Context, path string) (unlock func(), err error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}
	if !ok {
		return nil, &IOError{Op: "lock", Path: path, Err: fmt.Errorf("lock not acquired")}
	}
	return func() { _ = fl.Unlock() }, nil
}
