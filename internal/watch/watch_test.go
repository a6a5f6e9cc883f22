package watch

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

func TestIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"/repo/.git/index.lock", true},
		{"/repo/.git/HEAD.LOCK", true},
		{"/repo/.git/fsmonitor.ipc", true},
		{"/repo/.git/HEAD", false},
		{"/repo/main.go", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ignored(tt.name), tt.name)
	}
}

func TestWatchPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	assert.Equal(t, []string{root}, watchPaths(root))

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "refs", "heads"), 0o755))
	assert.Equal(t, []string{
		root,
		filepath.Join(root, ".git"),
		filepath.Join(root, ".git", "refs", "heads"),
	}, watchPaths(root))
	assert.Nil(t, watchPaths(""))
}

func TestRunCoalescesBursts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, root, 50*time.Millisecond, func() {
			calls.Add(1)
			fired <- struct{}{}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte{byte('a' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index.lock"), nil, 0o644))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
