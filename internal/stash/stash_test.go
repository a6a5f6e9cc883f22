package stash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/testutil"
)

func openManager(t *testing.T, tr *testutil.Repo) *Manager {
	t.Helper()
	repo, err := backend.Open(tr.Dir)
	require.NoError(t, err)
	return NewManager(repo)
}

func TestParseSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subject, branch, message string
	}{
		{"On main: half done", "main", "half done"},
		{"On feature/x: a: b", "feature/x", "a: b"},
		{"WIP on main: 1234567 first", "main", "WIP on main: 1234567 first"},
		{"WIP on (no branch): 1234567 first", "", "WIP on (no branch): 1234567 first"},
		{"something else", "", "something else"},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			t.Parallel()
			branch, message := parseSubject(tt.subject)
			assert.Equal(t, tt.branch, branch)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	m := openManager(t, tr)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateOptions{})
	assert.ErrorIs(t, err, grafterrors.ErrNothingToStash)

	tr.WriteFile("a.txt", "changed\n")
	tr.WriteFile("new.txt", "untracked\n")
	entry, err := m.Create(ctx, CreateOptions{Message: "half done", IncludeUntracked: true})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Index)
	assert.Equal(t, "half done", entry.Message)
	assert.Equal(t, "main", entry.Branch)
	assert.Equal(t, 2, entry.FileCount)
	assert.NotEmpty(t, entry.Oid)
	assert.Positive(t, entry.Timestamp)
	assert.Empty(t, tr.StatusPorcelain())

	files, err := m.Diff(ctx, 0)
	require.NoError(t, err)
	paths := []string{}
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"a.txt", "new.txt"}, paths)

	tr.WriteFile("a.txt", "again\n")
	second, err := m.Create(ctx, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.FileCount)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Oid, list[0].Oid)
	assert.Equal(t, entry.Oid, list[1].Oid)
	assert.Equal(t, 1, list[1].Index)
}

func TestUntrackedOnlyNeedsIncludeUntracked(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	tr.WriteFile("new.txt", "untracked\n")
	m := openManager(t, tr)

	_, err := m.Create(context.Background(), CreateOptions{})
	assert.ErrorIs(t, err, grafterrors.ErrNothingToStash)
	_, err = m.Create(context.Background(), CreateOptions{IncludeUntracked: true})
	assert.NoError(t, err)
}

func TestCreateOnUnbornHead(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.WriteFile("a.txt", "a\n")
	tr.Git("add", "a.txt")
	_, err := openManager(t, tr).Create(context.Background(), CreateOptions{})
	assert.ErrorIs(t, err, grafterrors.ErrUnbornHead)
}

func TestKeepIndex(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	tr.WriteFile("a.txt", "staged\n")
	tr.Git("add", "a.txt")
	_, err := openManager(t, tr).Create(context.Background(), CreateOptions{KeepIndex: true})
	require.NoError(t, err)
	assert.Equal(t, "staged\n", tr.ReadFile("a.txt"))
}

func TestPopShiftsIndices(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	tr.CommitFile("b.txt", "b\n", "more")
	m := openManager(t, tr)
	ctx := context.Background()

	tr.WriteFile("a.txt", "first\n")
	older, err := m.Create(ctx, CreateOptions{Message: "older"})
	require.NoError(t, err)
	tr.WriteFile("b.txt", "second\n")
	_, err = m.Create(ctx, CreateOptions{Message: "newer"})
	require.NoError(t, err)

	out, err := m.Pop(ctx, 0, false)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.Dropped)
	assert.Empty(t, out.Conflicts)
	assert.Equal(t, "second\n", tr.ReadFile("b.txt"))

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Index)
	assert.Equal(t, older.Oid, list[0].Oid)
	assert.Equal(t, "older", list[0].Message)
}

func TestConflictedPopKeepsEntry(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	m := openManager(t, tr)
	ctx := context.Background()

	tr.WriteFile("a.txt", "stashed\n")
	_, err := m.Create(ctx, CreateOptions{})
	require.NoError(t, err)
	tr.CommitFile("a.txt", "committed\n", "conflicting")

	out, err := m.Pop(ctx, 0, false)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.False(t, out.Dropped)
	require.Len(t, out.Conflicts, 1)
	assert.Equal(t, "a.txt", out.Conflicts[0].Path)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApplyKeepsEntryAndNeedsCleanTree(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	m := openManager(t, tr)
	ctx := context.Background()

	tr.WriteFile("a.txt", "stashed\n")
	_, err := m.Create(ctx, CreateOptions{})
	require.NoError(t, err)

	tr.WriteFile("a.txt", "dirty\n")
	_, err = m.Apply(ctx, 0, false)
	assert.ErrorIs(t, err, grafterrors.ErrDirtyWorkingTree)
	tr.Git("checkout", "--", "a.txt")

	out, err := m.Apply(ctx, 0, false)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Dropped)
	assert.Equal(t, "stashed\n", tr.ReadFile("a.txt"))

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDropAndMissingIndex(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	m := openManager(t, tr)
	ctx := context.Background()

	assert.ErrorIs(t, m.Drop(ctx, 0), grafterrors.ErrReferenceNotFound)
	assert.ErrorIs(t, m.Drop(ctx, -1), grafterrors.ErrInvalidInput)

	tr.WriteFile("a.txt", "x\n")
	_, err := m.Create(ctx, CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, m.Drop(ctx, 0))

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = m.Pop(ctx, 0, false)
	assert.ErrorIs(t, err, grafterrors.ErrReferenceNotFound)
}

func TestApplyRestoresIndex(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("a.txt", "a\n", "base")
	m := openManager(t, tr)
	ctx := context.Background()

	tr.WriteFile("a.txt", "staged\n")
	tr.Git("add", "a.txt")
	_, err := m.Create(ctx, CreateOptions{})
	require.NoError(t, err)

	out, err := m.Apply(ctx, 0, true)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "M  a.txt", tr.StatusPorcelain())
}
