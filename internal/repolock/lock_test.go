package repolock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := Open(path)
	require.NoError(t, l.Acquire(context.Background(), 0, 0))
	require.NoError(t, l.Release())
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	holder := Open(path)
	require.NoError(t, holder.Acquire(context.Background(), 0, 0))
	defer holder.Release()

	contender := Open(path)
	err := contender.Acquire(context.Background(), 50*time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
	var contention *ContentionError
	assert.ErrorAs(t, err, &contention)
}

func TestAcquireSucceedsOnceReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	holder := Open(path)
	require.NoError(t, holder.Acquire(context.Background(), 0, 0))

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		holder.Release()
		close(released)
	}()

	contender := Open(path)
	err := contender.Acquire(context.Background(), time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	<-released
	assert.NoError(t, contender.Release())
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	holder := Open(path)
	require.NoError(t, holder.Acquire(context.Background(), 0, 0))
	defer holder.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	contender := Open(path)
	err := contender.Acquire(ctx, time.Hour, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}
