package probe

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFiresOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watch test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suite: a\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { fired <- struct{}{} })
	}()

	// Give the watcher time to attach before the first write.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("suite: b\n"), 0o644))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback never fired")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestWatchSerializesCallbacks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watch test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suite: a\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight, maxInFlight, calls atomic.Int32
	onChange := func() {
		cur := inFlight.Add(1)
		for {
			seen := maxInFlight.Load()
			if cur <= seen || maxInFlight.CompareAndSwap(seen, cur) {
				break
			}
		}
		calls.Add(1)
		// Long enough that later file writes land mid-callback.
		time.Sleep(500 * time.Millisecond)
		inFlight.Add(-1)
	}

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, onChange)
	}()

	time.Sleep(200 * time.Millisecond)
	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(path, []byte("suite: b\n"), 0o644))
		time.Sleep(400 * time.Millisecond)
	}

	// Let the last pending callback drain.
	time.Sleep(time.Second)
	cancel()
	<-done

	assert.GreaterOrEqual(t, calls.Load(), int32(2))
	assert.Equal(t, int32(1), maxInFlight.Load(), "callbacks must never overlap")
}
