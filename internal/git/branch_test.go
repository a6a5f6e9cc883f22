package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/testutil"
)

func TestSwitchBranchPreconditions(t *testing.T) {
	t.Parallel()

	store := &fakeStore{clean: grafterrors.ErrDirtyWorkingTree}
	err := New(store).SwitchBranch(context.Background(), "feature")
	assert.ErrorIs(t, err, grafterrors.ErrDirtyWorkingTree)
	assert.Zero(t, store.switchCalls)

	store = &fakeStore{state: backend.StateMerge}
	err = New(store).SwitchBranch(context.Background(), "feature")
	assert.ErrorIs(t, err, grafterrors.ErrOperationInProgress)
	assert.Zero(t, store.switchCalls)

	store = &fakeStore{}
	require.NoError(t, New(store).SwitchBranch(context.Background(), " feature "))
	assert.Equal(t, "feature", store.lastSwitched)
}

func TestCreateBranchWithCheckout(t *testing.T) {
	t.Parallel()

	store := &fakeStore{head: backend.HeadInfo{Hash: hashA, Branch: "main"}}
	err := New(store).CreateBranch(context.Background(), CreateBranchOptions{Name: "topic", Checkout: true})
	require.NoError(t, err)
	assert.Equal(t, [2]string{"topic", ""}, store.lastCreated)
	assert.Equal(t, "topic", store.lastSwitched)

	store = &fakeStore{head: backend.HeadInfo{Branch: "main", Unborn: true}}
	err = New(store).CreateBranch(context.Background(), CreateBranchOptions{Name: "topic"})
	assert.ErrorIs(t, err, grafterrors.ErrUnbornHead)

	store = &fakeStore{validateFn: func(string) error { return grafterrors.NewInputError("bad") }}
	err = New(store).CreateBranch(context.Background(), CreateBranchOptions{Name: "a..b"})
	assert.ErrorIs(t, err, grafterrors.ErrInvalidInput)
	assert.Empty(t, store.lastCreated[0])
}

func TestDeleteCurrentBranchRefused(t *testing.T) {
	t.Parallel()

	store := &fakeStore{head: backend.HeadInfo{Hash: hashA, Branch: "main"}}
	err := New(store).DeleteBranch(context.Background(), "main", true)
	assert.ErrorContains(t, err, "current branch")
	assert.Empty(t, store.lastDeleted)

	require.NoError(t, New(store).DeleteBranch(context.Background(), "old", false))
	assert.Equal(t, "old", store.lastDeleted)
}

func TestSwitchBranchWithDirtyTreeKeepsHead(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("file.txt", "one\n", "initial")
	tr.Git("branch", "feature")
	before := tr.Head()
	tr.WriteFile("file.txt", "changed\n")

	svc, _, err := Open(tr.Dir)
	require.NoError(t, err)
	err = svc.SwitchBranch(context.Background(), "feature")
	require.ErrorIs(t, err, grafterrors.ErrDirtyWorkingTree)
	assert.Contains(t, err.Error(), "commit or stash first")
	assert.Equal(t, before, tr.Head())
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
}

func TestBranchLifecycleRealRepository(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	tr.CommitFile("file.txt", "one\n", "initial")
	svc, _, err := Open(tr.Dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.CreateBranch(ctx, CreateBranchOptions{Name: "topic"}))
	require.NoError(t, svc.RenameBranch(ctx, "topic", "renamed"))
	assert.ErrorIs(t, svc.RenameBranch(ctx, "renamed", "bad..name"), grafterrors.ErrInvalidInput)

	branches, err := svc.Branches()
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "main", branches[0].Name)
	assert.True(t, branches[0].IsCurrent)
	assert.Equal(t, "renamed", branches[1].Name)
	assert.Equal(t, "refs/heads/renamed", branches[1].FullName)
	assert.Equal(t, "initial", branches[1].CommitMessage)
	assert.Equal(t, tr.Head(), branches[1].CommitHash)

	require.NoError(t, svc.SwitchBranch(ctx, "renamed"))
	assert.Equal(t, "renamed", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
	require.NoError(t, svc.DeleteBranch(ctx, "main", false))

	err = svc.DeleteBranch(ctx, "missing", false)
	assert.ErrorIs(t, err, grafterrors.ErrReferenceNotFound)
}
