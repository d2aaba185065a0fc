package disk

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mcoot/acctstore/internal/storage"
)

// LockFileName is created inside the account directory to hold the lock
const LockFileName = ".lock"

// FileLocker takes an flock(2) lock on a file in the account directory.
// It only works on the OS filesystem.
type FileLocker struct {
	path       string
	retryDelay time.Duration
}

// NewFileLocker creates a locker for the directory at root
func NewFileLocker(root string) *FileLocker {
	return &FileLocker{
		path:       filepath.Join(root, LockFileName),
		retryDelay: 10 * time.Millisecond,
	}
}

// Ensure FileLocker implements the interface
var _ storage.Locker = (*FileLocker)(nil)

// Lock blocks until the lock is held or ctx is done
func (l *FileLocker) Lock(ctx context.Context) (func() error, error) {
	fl := flock.New(l.path)
	ok, err := fl.TryLockContext(ctx, l.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", l.path, context.Cause(ctx))
	}
	return fl.Unlock, nil
}
