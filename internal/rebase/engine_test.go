package rebase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/testutil"
)

func openEngine(t *testing.T, tr *testutil.Repo) *Engine {
	t.Helper()
	repo, err := backend.Open(tr.Dir)
	require.NoError(t, err)
	return NewEngine(repo)
}

func picks(hashes ...string) []Instruction {
	plan := make([]Instruction, 0, len(hashes))
	for _, h := range hashes {
		plan = append(plan, Instruction{Hash: h, Action: ActionPick})
	}
	return plan
}

func TestSquashScenario(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	b := tr.CommitFile("b.txt", "b\n", "B")
	c := tr.CommitFile("c.txt", "c\n", "C")

	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{
		Base: root,
		Plan: []Instruction{
			{Hash: a, Action: ActionPick},
			{Hash: b, Action: ActionSquash},
			{Hash: c, Action: ActionPick},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.RebaseState)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalCommits)

	assert.Equal(t, []string{"C", "A", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "A\n\nB", tr.Git("log", "-1", "--format=%B", "HEAD~1"))
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, res.NewHead, tr.Head())
	assert.Equal(t, "b\n", tr.ReadFile("b.txt"))
	assert.Empty(t, tr.StatusPorcelain())
	assert.NoDirExists(t, filepath.Join(tr.Dir, ".git", "rebase-merge"))
}

func TestCompletedRebaseCommitCount(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	var hashes []string
	for _, name := range []string{"one", "two", "three", "four", "five"} {
		hashes = append(hashes, tr.CommitFile(name+".txt", name+"\n", name))
	}

	plan := []Instruction{
		{Hash: hashes[0], Action: ActionPick},
		{Hash: hashes[1], Action: ActionReword, NewMessage: "second, reworded"},
		{Hash: hashes[2], Action: ActionFixup},
		{Hash: hashes[3], Action: ActionDrop},
		{Hash: hashes[4], Action: ActionPick},
	}
	res, err := openEngine(t, tr).Start(context.Background(), Request{Base: root, Plan: plan})
	require.NoError(t, err)
	require.Equal(t, StateCompleted, res.RebaseState)

	// total - drops - folds
	assert.Equal(t, []string{"five", "second, reworded", "one", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "3", tr.Git("rev-list", "--count", root+"..HEAD"))
	_, err = os.Stat(filepath.Join(tr.Dir, "four.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "three\n", tr.ReadFile("three.txt"))
}

func TestPickPreservesAuthor(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	authorDate := tr.Git("log", "-1", "--format=%aI", a)

	_, err := openEngine(t, tr).Start(context.Background(), Request{
		Base: root,
		Plan: []Instruction{{Hash: a, Action: ActionPick}},
	})
	require.NoError(t, err)
	assert.Equal(t, authorDate, tr.Git("log", "-1", "--format=%aI", "HEAD"))
	assert.Equal(t, "Test User", tr.Git("log", "-1", "--format=%an", "HEAD"))
}

// conflictingHistory builds root -> X -> Y where X and Y both rewrite f.txt,
// so replaying Y before X conflicts.
func conflictingHistory(t *testing.T) (tr *testutil.Repo, root, x, y string) {
	t.Helper()
	tr = testutil.NewRepo(t)
	root = tr.CommitFile("f.txt", "base\n", "root")
	x = tr.CommitFile("f.txt", "x\n", "X")
	y = tr.CommitFile("f.txt", "y\n", "Y")
	return tr, root, x, y
}

func TestAbortAfterConflictRestoresEverything(t *testing.T) {
	t.Parallel()

	tr, root, x, y := conflictingHistory(t)
	before := tr.Head()
	tr.WriteFile("untracked.txt", "keep me\n")

	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{Base: root, Plan: picks(y, x)})
	require.NoError(t, err)
	assert.Equal(t, StateConflict, res.RebaseState)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.CurrentCommitIndex)
	assert.Equal(t, 2, res.TotalCommits)
	assert.Equal(t, []conflict.Conflict{{Path: "f.txt", Kind: conflict.KindContent}}, res.Conflicts)

	status, err := e.Status()
	require.NoError(t, err)
	assert.True(t, status.IsInProgress)
	assert.True(t, status.HasConflicts)
	assert.Equal(t, StateConflict, status.State)
	assert.Equal(t, root, status.OntoCommit)
	assert.Equal(t, before, status.OriginalHead)

	_, err = e.Start(context.Background(), Request{Base: root, Plan: picks(x)})
	assert.ErrorIs(t, err, grafterrors.ErrOperationInProgress)

	res, err = e.Abort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.RebaseState)

	assert.Equal(t, before, tr.Head())
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, "y\n", tr.ReadFile("f.txt"))
	assert.Equal(t, "?? untracked.txt", tr.StatusPorcelain())

	status, err = e.Status()
	require.NoError(t, err)
	assert.False(t, status.IsInProgress)

	_, err = e.Abort(context.Background())
	assert.ErrorIs(t, err, grafterrors.ErrNoOperationInProgress)
}

func TestContinueAfterResolvingConflicts(t *testing.T) {
	t.Parallel()

	tr, root, x, y := conflictingHistory(t)
	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{Base: root, Plan: picks(y, x)})
	require.NoError(t, err)
	require.Equal(t, StateConflict, res.RebaseState)

	// Unresolved conflicts keep the session where it is.
	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConflict, res.RebaseState)
	assert.Equal(t, 1, res.CurrentCommitIndex)

	tr.WriteFile("f.txt", "y\n")
	tr.Git("add", "f.txt")
	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateConflict, res.RebaseState)
	assert.Equal(t, 2, res.CurrentCommitIndex)

	tr.WriteFile("f.txt", "x\n")
	tr.Git("add", "f.txt")
	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.RebaseState)

	assert.Equal(t, []string{"X", "Y", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "x\n", tr.ReadFile("f.txt"))
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
}

func TestContinueSurvivesRestart(t *testing.T) {
	t.Parallel()

	tr, root, x, y := conflictingHistory(t)
	res, err := openEngine(t, tr).Start(context.Background(), Request{Base: root, Plan: picks(y, x)})
	require.NoError(t, err)
	require.Equal(t, StateConflict, res.RebaseState)

	assert.Equal(t, "1", tr.ReadFile(".git/rebase-merge/msgnum")[:1])
	assert.Equal(t, "2", tr.ReadFile(".git/rebase-merge/end")[:1])

	tr.WriteFile("f.txt", "y\n")
	tr.Git("add", "f.txt")

	restarted := openEngine(t, tr)
	status, err := restarted.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.CurrentCommitIndex)
	assert.Equal(t, 2, status.TotalCommits)
	assert.False(t, status.HasConflicts)

	res, err = restarted.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConflict, res.RebaseState)
	assert.Equal(t, 2, res.CurrentCommitIndex)
}

func TestContinueRejectsTamperedBookkeeping(t *testing.T) {
	t.Parallel()

	tr, root, x, y := conflictingHistory(t)
	before := tr.Head()
	e := openEngine(t, tr)
	_, err := e.Start(context.Background(), Request{Base: root, Plan: picks(y, x)})
	require.NoError(t, err)

	tr.WriteFile(".git/rebase-merge/end", "7\n")
	_, err = e.Continue(context.Background())
	assert.ErrorIs(t, err, grafterrors.ErrInvariant)

	tr.WriteFile(".git/rebase-merge/end", "2\n")
	_, err = e.Abort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, tr.Head())
}

func TestEditStopsAndContinues(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	b := tr.CommitFile("b.txt", "b\n", "B")
	c := tr.CommitFile("c.txt", "c\n", "C")

	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{
		Base: root,
		Plan: []Instruction{
			{Hash: a, Action: ActionPick},
			{Hash: b, Action: ActionEdit},
			{Hash: c, Action: ActionPick},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StateStoppedForEdit, res.RebaseState)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.CurrentCommitIndex)
	assert.Equal(t, "B", tr.Git("log", "-1", "--format=%s", "HEAD"))

	status, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, StateStoppedForEdit, status.State)
	assert.Equal(t, 2, status.CurrentCommitIndex)

	tr.WriteFile("b.txt", "b edited\n")
	tr.Git("add", "b.txt")
	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.RebaseState)

	assert.Equal(t, []string{"C", "B", "A", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "b edited\n", tr.Git("show", "HEAD~1:b.txt")+"\n")
	assert.Empty(t, tr.StatusPorcelain())
}

func TestSquashAfterEditAmendsEditedCommit(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	b := tr.CommitFile("b.txt", "b\n", "B")
	c := tr.CommitFile("c.txt", "c\n", "C")

	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{
		Base: root,
		Plan: []Instruction{
			{Hash: a, Action: ActionPick},
			{Hash: b, Action: ActionEdit},
			{Hash: c, Action: ActionSquash},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StateStoppedForEdit, res.RebaseState)

	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.RebaseState)
	assert.Equal(t, []string{"B", "A", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "B\n\nC", tr.Git("log", "-1", "--format=%B", "HEAD"))
	assert.Equal(t, "c\n", tr.ReadFile("c.txt"))
}

func TestEditStopKeepsAmendedMessage(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	b := tr.CommitFile("b.txt", "b\n", "B")

	e := openEngine(t, tr)
	res, err := e.Start(context.Background(), Request{
		Base: root,
		Plan: []Instruction{{Hash: a, Action: ActionPick}, {Hash: b, Action: ActionEdit}},
	})
	require.NoError(t, err)
	require.Equal(t, StateStoppedForEdit, res.RebaseState)

	tr.Git("commit", "--amend", "-m", "B reworded at stop")
	res, err = e.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.RebaseState)
	assert.Equal(t, []string{"B reworded at stop", "A", "root"}, tr.Subjects("HEAD"))
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
}

func TestStartPreconditions(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	e := openEngine(t, tr)

	tr.WriteFile("a.txt", "dirty\n")
	_, err := e.Start(context.Background(), Request{Base: root, Plan: picks(a)})
	assert.ErrorIs(t, err, grafterrors.ErrDirtyWorkingTree)
	tr.Git("checkout", "--", "a.txt")

	_, err = e.Start(context.Background(), Request{Base: root, Plan: []Instruction{{Hash: a, Action: ActionDrop}}})
	var verr *grafterrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "every instruction is drop; refusing to remove all commits")

	_, err = e.Start(context.Background(), Request{Base: a, Plan: picks(root)})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], "is not between the base and HEAD")

	_, err = e.Start(context.Background(), Request{Base: "nope", Plan: picks(a)})
	assert.ErrorIs(t, err, grafterrors.ErrReferenceNotFound)

	_, err = e.Continue(context.Background())
	assert.ErrorIs(t, err, grafterrors.ErrNoOperationInProgress)
	assert.Equal(t, a, tr.Head())
}

func TestAbortOnConflictLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	tr, root, x, y := conflictingHistory(t)
	before := tr.Head()

	res, err := openEngine(t, tr).Start(context.Background(), Request{Base: root, Plan: picks(y, x), AbortOnConflict: true})
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.RebaseState)
	assert.False(t, res.Success)
	assert.Len(t, res.Conflicts, 1)
	assert.Equal(t, before, tr.Head())
	assert.Equal(t, "main", tr.Git("rev-parse", "--abbrev-ref", "HEAD"))
	assert.Empty(t, tr.StatusPorcelain())
	assert.NoDirExists(t, filepath.Join(tr.Dir, ".git", "rebase-merge"))
}

func TestCommitsListsRangeOldestFirst(t *testing.T) {
	t.Parallel()

	tr := testutil.NewRepo(t)
	root := tr.CommitFile("base.txt", "base\n", "root")
	a := tr.CommitFile("a.txt", "a\n", "A")
	b := tr.CommitFile("b.txt", "b\n", "B")

	got, err := openEngine(t, tr).Commits(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Hash)
	assert.Equal(t, b, got[1].Hash)
	assert.Equal(t, "A", got[0].Message)
	assert.Equal(t, ActionPick, got[0].Action)
	assert.Equal(t, "Test User", got[0].Author)
}
