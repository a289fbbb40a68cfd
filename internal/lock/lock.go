// Package lock provides an advisory, cross-process lock held around a
// load-modify-save cycle on a store file.
//
// The lock lives in a sibling "<store>.lock" file which is never removed;
// removing it would let two processes lock different inodes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock: store is locked by another process")

// pollInterval is how often Acquire retries a held lock.
const pollInterval = 50 * time.Millisecond

// Lock is a held advisory lock.
type Lock struct {
	f *os.File
}

// PathFor returns the lock file path guarding storePath.
func PathFor(storePath string) string {
	return storePath + ".lock"
}

// Acquire takes an exclusive lock for storePath, retrying until ctx is done.
// It returns ErrLocked if the lock could not be taken in time.
func Acquire(ctx context.Context, storePath string) (*Lock, error) {
	f, err := os.OpenFile(PathFor(storePath), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("lock: failed to open lock file: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, ErrLocked) {
			f.Close()
			return nil, fmt.Errorf("lock: failed to lock: %w", err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ErrLocked
		case <-ticker.C:
		}
	}
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
