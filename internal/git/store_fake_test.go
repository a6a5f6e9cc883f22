package git

import (
	"context"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

type fakeStore struct {
	path  string
	state backend.OperationState
	head  backend.HeadInfo
	refs  []backend.Ref

	commits map[string]*backend.Commit
	walk    []*backend.Commit
	status  backend.WorkingStatus
	index   []backend.IndexConflict
	clean   error

	changesFn  func(hash string) ([]backend.FileChange, error)
	patchFn    func(hash, path string) (string, error)
	commitFn   func(opts backend.CommitOptions) (string, error)
	validateFn func(name string) error

	lastWalkStarts []string
	lastWalkLimit  int
	lastStaged     []string
	lastUnstaged   []string
	lastDiscarded  []string
	lastCreated    [2]string
	lastDeleted    string
	lastRenamed    [2]string
	lastSwitched   string
	switchCalls    int
}

func (f *fakeStore) Path() string { return f.path }

func (f *fakeStore) State() (backend.OperationState, error) { return f.state, nil }

func (f *fakeStore) RequireNoOperation() error {
	if f.state != backend.StateNone {
		return errOperation(f.state)
	}
	return nil
}

func (f *fakeStore) RequireClean(context.Context) error { return f.clean }

func (f *fakeStore) Head() (backend.HeadInfo, error) { return f.head, nil }

func (f *fakeStore) ResolveCommit(rev string) (string, error) {
	if _, ok := f.commits[rev]; ok {
		return rev, nil
	}
	return "", errNotFound(rev)
}

func (f *fakeStore) ReadCommit(hash string) (*backend.Commit, error) {
	if c, ok := f.commits[hash]; ok {
		return c, nil
	}
	return nil, errNotFound(hash)
}

func (f *fakeStore) ListRefs() ([]backend.Ref, error) { return f.refs, nil }

func (f *fakeStore) Walk(_ context.Context, starts []string, limit int) ([]*backend.Commit, error) {
	f.lastWalkStarts = starts
	f.lastWalkLimit = limit
	if limit > 0 && len(f.walk) > limit {
		return f.walk[:limit], nil
	}
	return f.walk, nil
}

func (f *fakeStore) CommitChanges(_ context.Context, hash string) ([]backend.FileChange, error) {
	if f.changesFn != nil {
		return f.changesFn(hash)
	}
	return nil, nil
}

func (f *fakeStore) CommitPatch(_ context.Context, hash, path string) (string, error) {
	if f.patchFn != nil {
		return f.patchFn(hash, path)
	}
	return "", nil
}

func (f *fakeStore) Status(context.Context) (backend.WorkingStatus, error) { return f.status, nil }

func (f *fakeStore) IndexConflicts() ([]backend.IndexConflict, error) { return f.index, nil }

func (f *fakeStore) FileDiff(path string, staged bool) (string, error) {
	if staged {
		return "staged " + path, nil
	}
	return "unstaged " + path, nil
}

func (f *fakeStore) Stage(_ context.Context, paths []string) error {
	f.lastStaged = paths
	return nil
}

func (f *fakeStore) Unstage(_ context.Context, paths []string) error {
	f.lastUnstaged = paths
	return nil
}

func (f *fakeStore) Discard(_ context.Context, paths []string) error {
	f.lastDiscarded = paths
	return nil
}

func (f *fakeStore) Commit(_ context.Context, opts backend.CommitOptions) (string, error) {
	if f.commitFn != nil {
		return f.commitFn(opts)
	}
	return "", nil
}

func (f *fakeStore) ValidateBranchName(_ context.Context, name string) error {
	if f.validateFn != nil {
		return f.validateFn(name)
	}
	return nil
}

func (f *fakeStore) CreateBranch(_ context.Context, name, start string) error {
	f.lastCreated = [2]string{name, start}
	return nil
}

func (f *fakeStore) DeleteBranch(_ context.Context, name string, _ bool) error {
	f.lastDeleted = name
	return nil
}

func (f *fakeStore) RenameBranch(_ context.Context, oldName, newName string) error {
	f.lastRenamed = [2]string{oldName, newName}
	return nil
}

func (f *fakeStore) SwitchBranch(_ context.Context, name string) error {
	f.lastSwitched = name
	f.switchCalls++
	return nil
}

func errOperation(state backend.OperationState) error {
	return &grafterrors.OperationInProgressError{State: state.String()}
}

func errNotFound(name string) error {
	return &grafterrors.ReferenceNotFoundError{Name: name}
}
