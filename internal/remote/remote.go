// Package remote keeps a branch in step with its remote: fetching, pulling
// with merge or rebase reconciliation, and pushing with optional force or
// lease protection.
package remote

import (
	"context"
	"fmt"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/rebase"
)

// DefaultRemote is used when a branch has no upstream and the caller names
// no remote.
const DefaultRemote = "origin"

// Store is the part of the object store remote operations need.
type Store interface {
	conflict.IndexReader
	State() (backend.OperationState, error)
	RequireNoOperation() error
	RequireClean(ctx context.Context) error
	Head() (backend.HeadInfo, error)
	RefHash(name string) (string, bool, error)
	IsAncestor(ancestor, descendant string) (bool, error)
	MergeBase(a, b string) (string, error)
	AheadBehind(ctx context.Context, local, upstream string) (int, int, error)
	RangeCommits(ctx context.Context, base, head string) ([]*backend.Commit, error)

	Remote(name string) (backend.RemoteInfo, error)
	Upstream(branch string) (string, string, bool, error)
	SetUpstream(branch, remote string) error
	Fetch(ctx context.Context, remote string, refSpecs []string, progress backend.ProgressFunc) (bool, error)
	Push(ctx context.Context, req backend.PushRequest) error
	RemoteBranchHash(ctx context.Context, remote, branch string) (string, bool, error)

	Merge(ctx context.Context, tip, message string) (bool, error)
	MergeAbort(ctx context.Context) error
	FastForward(ctx context.Context, tip string) error
}

// Rebaser replays local commits during a rebase pull.
type Rebaser interface {
	Start(ctx context.Context, req rebase.Request) (rebase.Result, error)
}

type Service struct {
	store         Store
	rebaser       Rebaser
	defaultRemote string
}

type Option func(*Service)

// WithDefaultRemote replaces DefaultRemote.
func WithDefaultRemote(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultRemote = name
		}
	}
}

func New(store Store, rebaser Rebaser, opts ...Option) *Service {
	s := &Service{store: store, rebaser: rebaser, defaultRemote: DefaultRemote}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// target is a local branch paired with the remote branch it syncs with.
type target struct {
	branch       string
	remote       string
	remoteBranch string
}

func (t target) trackingRef() string {
	return fmt.Sprintf("refs/remotes/%s/%s", t.remote, t.remoteBranch)
}

func (t target) display() string {
	return t.remote + "/" + t.remoteBranch
}

// resolveTarget picks the remote for branch: an explicit name wins, then the
// configured upstream, then the default remote.
func (s *Service) resolveTarget(branch, remote string) (target, error) {
	t := target{branch: branch, remote: remote, remoteBranch: branch}
	upRemote, upBranch, ok, err := s.store.Upstream(branch)
	if err != nil {
		return target{}, err
	}
	switch {
	case ok && (remote == "" || remote == upRemote):
		t.remote, t.remoteBranch = upRemote, upBranch
	case remote == "":
		t.remote = s.defaultRemote
	}
	if _, err := s.store.Remote(t.remote); err != nil {
		return target{}, err
	}
	return t, nil
}

// currentBranch returns the checked-out branch, refusing unborn and
// detached HEADs.
func (s *Service) currentBranch() (backend.HeadInfo, error) {
	head, err := s.store.Head()
	if err != nil {
		return backend.HeadInfo{}, err
	}
	if head.Unborn {
		return head, grafterrors.ErrUnbornHead
	}
	if head.Detached {
		return head, grafterrors.ErrDetachedHead
	}
	return head, nil
}
