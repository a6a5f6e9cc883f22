// Package stash manages saved work-in-progress: creating, listing, applying,
// popping and dropping stash entries.
package stash

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

type Store interface {
	conflict.IndexReader
	RequireNoOperation() error
	RequireClean(ctx context.Context) error
	Head() (backend.HeadInfo, error)
	Status(ctx context.Context) (backend.WorkingStatus, error)
	StashSave(ctx context.Context, opts backend.StashSaveOptions) error
	StashList(ctx context.Context) ([]backend.StashRecord, error)
	StashApply(ctx context.Context, index int, restoreIndex bool) (bool, error)
	StashDrop(ctx context.Context, index int) error
	DiffCommits(ctx context.Context, from, to string) ([]backend.FileChange, error)
	CommitChanges(ctx context.Context, hash string) ([]backend.FileChange, error)
}

// Entry is one stash, newest at index 0.
type Entry struct {
	Index     int    `json:"index"`
	Message   string `json:"message"`
	Branch    string `json:"branch"`
	Timestamp int64  `json:"timestamp"`
	Oid       string `json:"oid"`
	FileCount int    `json:"file_count"`
}

type CreateOptions struct {
	Message          string `json:"message,omitempty"`
	IncludeUntracked bool   `json:"include_untracked"`
	KeepIndex        bool   `json:"keep_index"`
}

// ApplyOutcome reports an apply or pop. Conflicts are a normal outcome: the
// entry is kept and the conflicted paths are listed.
type ApplyOutcome struct {
	Success   bool                `json:"success"`
	Index     int                 `json:"index"`
	Dropped   bool                `json:"dropped"`
	Conflicts []conflict.Conflict `json:"conflicts"`
	Message   string              `json:"message"`
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create saves the working tree changes as a new stash and returns it.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (Entry, error) {
	if err := m.store.RequireNoOperation(); err != nil {
		return Entry{}, err
	}
	head, err := m.store.Head()
	if err != nil {
		return Entry{}, err
	}
	if head.Unborn {
		return Entry{}, grafterrors.ErrUnbornHead
	}
	status, err := m.store.Status(ctx)
	if err != nil {
		return Entry{}, err
	}
	if !status.HasStaged && !status.HasWorktree && !(opts.IncludeUntracked && status.HasUntracked) {
		return Entry{}, grafterrors.ErrNothingToStash
	}
	err = m.store.StashSave(ctx, backend.StashSaveOptions{
		Message:          opts.Message,
		IncludeUntracked: opts.IncludeUntracked,
		KeepIndex:        opts.KeepIndex,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("save stash: %w", err)
	}
	entries, err := m.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, &grafterrors.InvariantError{Detail: "stash was saved but the stash list is empty"}
	}
	slog.Info("stash created", slog.String("oid", entries[0].Oid), slog.Int("files", entries[0].FileCount))
	return entries[0], nil
}

func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	records, err := m.store.StashList(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		branch, message := parseSubject(rec.Subject)
		files, err := m.files(ctx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Index:     rec.Index,
			Message:   message,
			Branch:    branch,
			Timestamp: rec.Time.Unix(),
			Oid:       rec.Hash,
			FileCount: len(files),
		})
	}
	return out, nil
}

// Diff lists the files an entry changes, untracked files included.
func (m *Manager) Diff(ctx context.Context, index int) ([]backend.FileChange, error) {
	rec, err := m.record(ctx, index)
	if err != nil {
		return nil, err
	}
	return m.files(ctx, rec)
}

// Apply restores an entry onto a clean working tree and keeps it. With
// restoreIndex the staged part is staged again.
func (m *Manager) Apply(ctx context.Context, index int, restoreIndex bool) (ApplyOutcome, error) {
	return m.apply(ctx, index, restoreIndex, false)
}

// Pop applies an entry and drops it, unless applying it conflicted.
func (m *Manager) Pop(ctx context.Context, index int, restoreIndex bool) (ApplyOutcome, error) {
	return m.apply(ctx, index, restoreIndex, true)
}

func (m *Manager) apply(ctx context.Context, index int, restoreIndex, drop bool) (ApplyOutcome, error) {
	if _, err := m.record(ctx, index); err != nil {
		return ApplyOutcome{}, err
	}
	if err := m.store.RequireNoOperation(); err != nil {
		return ApplyOutcome{}, err
	}
	if err := m.store.RequireClean(ctx); err != nil {
		return ApplyOutcome{}, err
	}
	out := ApplyOutcome{Index: index, Conflicts: []conflict.Conflict{}}
	conflicted, err := m.store.StashApply(ctx, index, restoreIndex)
	if err != nil {
		return ApplyOutcome{}, fmt.Errorf("apply stash@{%d}: %w", index, err)
	}
	if conflicted {
		if out.Conflicts, err = conflict.Collect(m.store); err != nil {
			return ApplyOutcome{}, err
		}
		out.Message = fmt.Sprintf("stash@{%d} applied with %d conflicted file(s); the entry was kept", index, len(out.Conflicts))
		slog.Info("stash apply conflicted", slog.Int("index", index), slog.Int("conflicts", len(out.Conflicts)))
		return out, nil
	}
	out.Success = true
	out.Message = fmt.Sprintf("Applied stash@{%d}", index)
	if drop {
		if err := m.store.StashDrop(ctx, index); err != nil {
			return out, fmt.Errorf("drop stash@{%d}: %w", index, err)
		}
		out.Dropped = true
		out.Message = fmt.Sprintf("Applied and dropped stash@{%d}", index)
	}
	slog.Info("stash applied", slog.Int("index", index), slog.Bool("dropped", out.Dropped))
	return out, nil
}

// Drop deletes an entry. Later entries shift down by one.
func (m *Manager) Drop(ctx context.Context, index int) error {
	if _, err := m.record(ctx, index); err != nil {
		return err
	}
	if err := m.store.StashDrop(ctx, index); err != nil {
		return fmt.Errorf("drop stash@{%d}: %w", index, err)
	}
	slog.Info("stash dropped", slog.Int("index", index))
	return nil
}

func (m *Manager) record(ctx context.Context, index int) (backend.StashRecord, error) {
	if index < 0 {
		return backend.StashRecord{}, grafterrors.NewInputError("stash index must not be negative, got %d", index)
	}
	records, err := m.store.StashList(ctx)
	if err != nil {
		return backend.StashRecord{}, err
	}
	if index >= len(records) {
		return backend.StashRecord{}, &grafterrors.ReferenceNotFoundError{Name: fmt.Sprintf("stash@{%d}", index)}
	}
	return records[index], nil
}

// files merges the tracked changes (against the base commit) with the
// untracked files kept in the third parent.
func (m *Manager) files(ctx context.Context, rec backend.StashRecord) ([]backend.FileChange, error) {
	if len(rec.Parents) == 0 {
		return nil, &grafterrors.InvariantError{Detail: fmt.Sprintf("stash %s has no base commit", rec.Hash)}
	}
	files, err := m.store.DiffCommits(ctx, rec.Parents[0], rec.Hash)
	if err != nil {
		return nil, err
	}
	if len(rec.Parents) > 2 {
		untracked, err := m.store.CommitChanges(ctx, rec.Parents[2])
		if err != nil {
			return nil, err
		}
		files = append(files, untracked...)
	}
	return files, nil
}

// parseSubject splits "On main: msg" and "WIP on main: abc1234 subject".
// A custom message is returned bare; git's generated one is kept whole.
func parseSubject(subject string) (branch, message string) {
	rest, custom := strings.CutPrefix(subject, "On ")
	if !custom {
		var ok bool
		if rest, ok = strings.CutPrefix(subject, "WIP on "); !ok {
			return "", subject
		}
	}
	name, msg, ok := strings.Cut(rest, ": ")
	if !ok {
		return "", subject
	}
	if name == "(no branch)" {
		name = ""
	}
	if custom {
		return name, msg
	}
	return name, subject
}
