package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himena-app/himena/internal/watcher"
)

func newTestWatcher(t *testing.T) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(watcher.Config{DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))

	w := newTestWatcher(t)
	onChange := w.Start()
	require.NoError(t, w.Watch(path))

	// Rapid writes should coalesce into a single notification.
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("v%d", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case changed := <-onChange:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, changed)
	case <-time.After(300 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresUnwatchedSiblings(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(watched, []byte("w"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("o"), 0644))

	w := newTestWatcher(t)
	onChange := w.Start()
	require.NoError(t, w.Watch(watched))

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unwatched sibling files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_ReportsChangedPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0644))

	w := newTestWatcher(t)
	onChange := w.Start()
	require.NoError(t, w.Watch(a))
	require.NoError(t, w.Watch(b))

	require.NoError(t, os.WriteFile(b, []byte("b2"), 0644))

	select {
	case changed := <-onChange:
		abs, _ := filepath.Abs(b)
		assert.Equal(t, abs, changed)
	case <-time.After(300 * time.Millisecond):
		t.Fatal("expected notification for b.csv")
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))

	w := newTestWatcher(t)
	onChange := w.Start()
	require.NoError(t, w.Watch(path))
	w.Unwatch(path)

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify after Unwatch")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))

	w, err := watcher.New(watcher.Config{DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err, "failed to create watcher")
	w.Start()
	require.NoError(t, w.Watch(path))

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 1*time.Second, watcher.DefaultConfig().DebounceDur)
}
