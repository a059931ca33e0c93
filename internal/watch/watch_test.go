package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreName(t *testing.T) {
	for name, want := range map[string]bool{
		"index.md":      false,
		"snippet.go":    false,
		".index.md.swp": true,
		"index.md~":     true,
		"#index.md#":    true,
		".DS_Store":     true,
		"4913":          true,
		"notes.swx":     true,
	} {
		require.Equal(t, want, shouldIgnoreName(name), name)
	}
}

func TestIgnoredExcludesOutputTree(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	w := New(root, nil, WithExclude(out, ""))

	require.True(t, w.ignored(out))
	require.True(t, w.ignored(filepath.Join(out, "a", "b.md")))
	require.False(t, w.ignored(filepath.Join(root, "_site2", "b.md")))
	require.False(t, w.ignored(filepath.Join(root, "a.md")))
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	req, trigger, stop := newDebouncer(30 * time.Millisecond)
	defer stop()

	for i := 0; i < 10; i++ {
		trigger()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-req:
	case <-time.After(2 * time.Second):
		t.Fatal("no rebuild request after burst")
	}
	select {
	case <-req:
		t.Fatal("burst produced more than one request")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	req, trigger, stop := newDebouncer(20 * time.Millisecond)
	trigger()
	stop()
	select {
	case <-req:
		t.Fatal("stopped debouncer fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestRunRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guide"), 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))

	var rebuilds atomic.Int64
	done := make(chan struct{}, 8)
	w := New(root, func(context.Context) error {
		rebuilds.Add(1)
		done <- struct{}{}
		return nil
	}, WithDebounce(20*time.Millisecond), WithExclude(out))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(out, "ignored.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, rebuilds.Load())

	require.NoError(t, os.WriteFile(filepath.Join(root, "guide", "page.md"), []byte("changed"), 0o644))
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
