// Package backend is graft's adapter over the versioned object store. Reads,
// refs and network transfer go through go-git; mutations that need git's own
// merge machinery shell out to the git executable.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// Repo is an open, non-bare repository with a working tree.
type Repo struct {
	path    string
	gitDir  string
	repo    *gitlib.Repository
	timeout time.Duration
	creds   Credentials
}

type Option func(*Repo)

// WithCommandTimeout bounds each git invocation that has no context deadline.
func WithCommandTimeout(d time.Duration) Option {
	return func(r *Repo) {
		r.timeout = d
	}
}

func Open(repoPath string, opts ...Option) (*Repo, error) {
	if strings.TrimSpace(repoPath) == "" {
		return nil, grafterrors.NewInputError("repository path is empty")
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", grafterrors.ErrPathNotFound, abs)
		}
		return nil, err
	}
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			// Dot-git detection only finds worktrees; a bare repository is
			// recognised by opening the path itself.
			if bare, openErr := gitlib.PlainOpen(abs); openErr == nil {
				if _, wtErr := bare.Worktree(); errors.Is(wtErr, gitlib.ErrIsBareRepository) {
					return nil, fmt.Errorf("%w: %s", grafterrors.ErrBareRepository, abs)
				}
			}
			return nil, fmt.Errorf("%w: %s", grafterrors.ErrNotARepository, abs)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, gitlib.ErrIsBareRepository) {
			return nil, fmt.Errorf("%w: %s", grafterrors.ErrBareRepository, abs)
		}
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	r := &Repo{path: wt.Filesystem.Root(), repo: repo}
	if fs, ok := repo.Storer.(*filesystem.Storage); ok {
		r.gitDir = fs.Filesystem().Root()
	} else {
		r.gitDir = filepath.Join(r.path, gitlib.GitDirName)
	}
	for _, opt := range opts {
		opt(r)
	}
	slog.Debug("repository opened", slog.String("path", r.path), slog.String("gitdir", r.gitDir))
	return r, nil
}

// Path is the root of the working tree.
func (r *Repo) Path() string {
	return r.path
}

// GitDir is the repository's administrative directory, usually <root>/.git.
func (r *Repo) GitDir() string {
	return r.gitDir
}

var stateMarkers = []struct {
	name  string
	state OperationState
}{
	{"rebase-merge", StateRebase},
	{"rebase-apply", StateRebase},
	{"MERGE_HEAD", StateMerge},
	{"CHERRY_PICK_HEAD", StateCherryPick},
	{"REVERT_HEAD", StateRevert},
	{"BISECT_LOG", StateBisect},
}

// State reads the operation in progress from the marker files git leaves in
// the administrative directory.
func (r *Repo) State() (OperationState, error) {
	for _, m := range stateMarkers {
		_, err := os.Stat(filepath.Join(r.gitDir, m.name))
		if err == nil {
			return m.state, nil
		}
		if !os.IsNotExist(err) {
			return StateNone, fmt.Errorf("read repository state: %w", err)
		}
	}
	return StateNone, nil
}

// RequireNoOperation fails when any operation is in progress.
func (r *Repo) RequireNoOperation() error {
	state, err := r.State()
	if err != nil {
		return err
	}
	if state != StateNone {
		return &grafterrors.OperationInProgressError{State: state.String()}
	}
	return nil
}

// RequireClean fails when tracked files differ from HEAD.
func (r *Repo) RequireClean(ctx context.Context) error {
	status, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Clean() {
		return grafterrors.ErrDirtyWorkingTree
	}
	return nil
}

func (r *Repo) Head() (HeadInfo, error) {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return HeadInfo{}, fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Type() != plumbing.SymbolicReference {
		return HeadInfo{Hash: ref.Hash().String(), Detached: true}, nil
	}
	target := ref.Target()
	resolved, err := r.repo.Reference(target, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return HeadInfo{Branch: target.Short(), Unborn: true}, nil
		}
		return HeadInfo{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	return HeadInfo{Hash: resolved.Hash().String(), Branch: target.Short()}, nil
}

// ResolveCommit resolves any revision (full or abbreviated hash, branch, tag,
// remote-tracking ref) to a commit hash.
func (r *Repo) ResolveCommit(rev string) (string, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return "", grafterrors.NewInputError("revision is empty")
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", &grafterrors.ReferenceNotFoundError{Name: rev}
	}
	hash, ok := r.peelToCommit(*h)
	if !ok {
		return "", &grafterrors.ReferenceNotFoundError{Name: rev}
	}
	return hash.String(), nil
}

// RefHash returns the hash a fully qualified ref points at.
func (r *Repo) RefHash(name string) (string, bool, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return ref.Hash().String(), true, nil
}

func (r *Repo) ReadCommit(hash string) (*Commit, error) {
	c, err := r.commitObject(hash)
	if err != nil {
		return nil, err
	}
	return toCommit(c), nil
}

func (r *Repo) commitObject(hash string) (*object.Commit, error) {
	if !plumbing.IsHash(hash) {
		resolved, err := r.ResolveCommit(hash)
		if err != nil {
			return nil, err
		}
		hash = resolved
	}
	c, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, &grafterrors.ReferenceNotFoundError{Name: hash}
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

func toCommit(c *object.Commit) *Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}

// peelToCommit follows annotated tags down to the commit they name.
// Lightweight tags and branches already point at a commit.
func (r *Repo) peelToCommit(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	if _, err := r.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := r.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}
