// Package git answers the caller-facing repository queries: history with
// branch and tag decoration, diffs, working-directory status, staging,
// committing and branch management. The history-rewriting engines live in
// sibling packages and share the same backend.Repo.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Dancode-188/graft/internal/git/backend"
)

// DefaultLimit caps a history listing when the caller gives no limit.
const DefaultLimit = 100

// Store is the part of the object store the service uses. *backend.Repo
// implements it; tests substitute a fake.
type Store interface {
	Path() string
	State() (backend.OperationState, error)
	RequireNoOperation() error
	RequireClean(ctx context.Context) error
	Head() (backend.HeadInfo, error)
	ResolveCommit(rev string) (string, error)
	ReadCommit(hash string) (*backend.Commit, error)
	ListRefs() ([]backend.Ref, error)
	Walk(ctx context.Context, starts []string, limit int) ([]*backend.Commit, error)

	CommitChanges(ctx context.Context, hash string) ([]backend.FileChange, error)
	CommitPatch(ctx context.Context, hash, path string) (string, error)

	Status(ctx context.Context) (backend.WorkingStatus, error)
	IndexConflicts() ([]backend.IndexConflict, error)
	FileDiff(path string, staged bool) (string, error)
	Stage(ctx context.Context, paths []string) error
	Unstage(ctx context.Context, paths []string) error
	Discard(ctx context.Context, paths []string) error
	Commit(ctx context.Context, opts backend.CommitOptions) (string, error)

	ValidateBranchName(ctx context.Context, name string) error
	CreateBranch(ctx context.Context, name, start string) error
	DeleteBranch(ctx context.Context, name string, force bool) error
	RenameBranch(ctx context.Context, oldName, newName string) error
	SwitchBranch(ctx context.Context, name string) error
}

type Service struct {
	store Store
}

// Open opens the repository at path and wraps it in a Service.
func Open(path string, opts ...backend.Option) (*Service, *backend.Repo, error) {
	repo, err := backend.Open(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return New(repo), repo, nil
}

func New(store Store) *Service {
	return &Service{store: store}
}

// RepoInfo summarises an opened repository.
type RepoInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	CurrentBranch string `json:"current_branch"`
	IsDetached    bool   `json:"is_detached"`
	IsUnborn      bool   `json:"is_unborn"`
	State         string `json:"state"`
}

func (s *Service) Info() (RepoInfo, error) {
	head, err := s.store.Head()
	if err != nil {
		return RepoInfo{}, err
	}
	state, err := s.store.State()
	if err != nil {
		return RepoInfo{}, err
	}
	info := RepoInfo{
		Name:       filepath.Base(s.store.Path()),
		Path:       s.store.Path(),
		IsDetached: head.Detached,
		IsUnborn:   head.Unborn,
		State:      state.String(),
	}
	switch {
	case head.Unborn:
		info.CurrentBranch = fmt.Sprintf("%s (no commits yet)", head.Branch)
	case head.Detached:
		info.CurrentBranch = fmt.Sprintf("HEAD (detached at %s)", shortHash(head.Hash))
	default:
		info.CurrentBranch = head.Branch
	}
	slog.Debug("repository info", slog.String("branch", info.CurrentBranch), slog.String("state", info.State))
	return info, nil
}

// State reports the operation in progress, "none" when idle.
func (s *Service) State() (string, error) {
	state, err := s.store.State()
	if err != nil {
		return "", err
	}
	return state.String(), nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
