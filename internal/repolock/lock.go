package repolock

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// DefaultWait bounds how long Acquire blocks before giving up with a
// LockContentionError, matching the error table's "block with bounded
// wait; then fail with actionable error" behavior for LockContention.
const DefaultWait = 10 * time.Second

// Lock is the repository's advisory, cross-process exclusive lock held
// for the duration of any mutating operation (append, verify, compact,
// redact) or any read that advances the projection cursor.
type Lock struct {
	fl *flock.Flock
}

// Open returns a Lock bound to path (typically .bones/lock) without
// acquiring it.
func Open(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Acquire blocks up to wait for the exclusive lock, polling at the given
// interval. A wait of zero attempts a single non-blocking try.
func (l *Lock) Acquire(ctx context.Context, wait, pollInterval time.Duration) error {
	if wait <= 0 {
		ok, err := l.fl.TryLock()
		if err != nil {
			return fmt.Errorf("repolock: try lock: %w", err)
		}
		if !ok {
			return &ContentionError{Path: l.fl.Path()}
		}
		return nil
	}

	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.fl.TryLock()
		if err != nil {
			return fmt.Errorf("repolock: try lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &ContentionError{Path: l.fl.Path()}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release drops the exclusive lock.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("repolock: unlock: %w", err)
	}
	return nil
}

// ContentionError is the LockContention error kind: the lock could not be
// acquired within the bounded wait.
type ContentionError struct {
	Path string
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("repolock: timed out waiting for exclusive lock on %s", e.Path)
}
