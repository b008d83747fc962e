package store

import (
	"fmt"

	"github.com/gofrs/flock"
)

// WriterLock is an exclusive advisory lock on <db>.lock held for a run.
type WriterLock struct {
	lock *flock.Flock
}

// AcquireWriterLock takes the single-writer lock for the database at dbPath
// without blocking. It returns ErrWriterLocked when another process holds it.
func AcquireWriterLock(dbPath string) (*WriterLock, error) {
	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire writer lock: %w", err)
	}
	if !ok {
		return nil, ErrWriterLocked
	}
	return &WriterLock{lock: lock}, nil
}

// Path returns the lock file path.
func (l *WriterLock) Path() string { return l.lock.Path() }

// Release unlocks the writer lock. It is safe to call more than once.
func (l *WriterLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release writer lock: %w", err)
	}
	return nil
}
