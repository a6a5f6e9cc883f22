// Package watch reports when a repository changes on disk, so callers can
// refresh without polling.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Dancode-188/graft/internal/debounce"
)

// DefaultDelay is how long a burst of events must be quiet before onChange
// runs.
const DefaultDelay = 350 * time.Millisecond

// Run watches root until ctx is done, calling onChange once per debounced
// burst of changes. It returns nil when ctx ends.
func Run(ctx context.Context, root string, delay time.Duration, onChange func()) error {
	if delay <= 0 {
		delay = DefaultDelay
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()
	for _, path := range watchPaths(root) {
		slog.Debug("watching", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	d := debounce.New(delay, onChange)
	defer d.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || ignored(ev.Name) {
				continue
			}
			slog.Debug("fs event", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
			d.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				d.Trigger()
				continue
			}
			slog.Warn("watch error", slog.Any("error", err))
		}
	}
}

// watchPaths lists the directories whose direct entries matter: the worktree
// root, the git dir and the local branch refs.
func watchPaths(root string) []string {
	if root == "" {
		return nil
	}
	paths := []string{root}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		paths = append(paths, gitDir)
		heads := filepath.Join(gitDir, "refs", "heads")
		if info, err := os.Stat(heads); err == nil && info.IsDir() {
			paths = append(paths, heads)
		}
	}
	return slices.Compact(paths)
}

// ignored filters git's lock and ipc files, which churn on every command.
func ignored(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".lock", ".ipc":
		return true
	}
	return false
}
