package git

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

type Branch struct {
	Name           string `json:"name"`
	FullName       string `json:"full_name"`
	IsRemote       bool   `json:"is_remote"`
	IsCurrent      bool   `json:"is_current"`
	CommitHash     string `json:"commit_hash"`
	CommitMessage  string `json:"commit_message"`
	LastCommitDate int64  `json:"last_commit_date"`
	Upstream       string `json:"upstream,omitempty"`
}

// Branches lists local branches, then remote-tracking branches, each sorted
// by name.
func (s *Service) Branches() ([]Branch, error) {
	refs, err := s.store.ListRefs()
	if err != nil {
		return nil, err
	}
	branches := []Branch{}
	for _, ref := range refs {
		if ref.Kind == backend.RefKindTag {
			continue
		}
		c, err := s.store.ReadCommit(ref.Hash)
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", ref.Name, err)
		}
		branches = append(branches, Branch{
			Name:           ref.Name,
			FullName:       ref.FullName,
			IsRemote:       ref.Kind == backend.RefKindRemoteBranch,
			IsCurrent:      ref.Current,
			CommitHash:     ref.Hash,
			CommitMessage:  formatSummary(strings.TrimSpace(c.Message)),
			LastCommitDate: c.Committer.When.Unix(),
			Upstream:       ref.Upstream,
		})
	}
	return branches, nil
}

type CreateBranchOptions struct {
	Name string
	// Start is any revision; empty means HEAD.
	Start    string
	Checkout bool
}

func (s *Service) CreateBranch(ctx context.Context, opts CreateBranchOptions) error {
	name := strings.TrimSpace(opts.Name)
	if err := s.store.ValidateBranchName(ctx, name); err != nil {
		return err
	}
	if opts.Start == "" {
		head, err := s.store.Head()
		if err != nil {
			return err
		}
		if head.Unborn {
			return grafterrors.ErrUnbornHead
		}
	}
	if opts.Checkout {
		if err := s.requireSwitchable(ctx); err != nil {
			return err
		}
	}
	if err := s.store.CreateBranch(ctx, name, opts.Start); err != nil {
		return err
	}
	slog.Info("branch created", slog.String("name", name), slog.String("start", opts.Start))
	if opts.Checkout {
		return s.store.SwitchBranch(ctx, name)
	}
	return nil
}

// DeleteBranch removes a local branch. Unmerged branches need force.
func (s *Service) DeleteBranch(ctx context.Context, name string, force bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return grafterrors.NewInputError("branch name is empty")
	}
	head, err := s.store.Head()
	if err != nil {
		return err
	}
	if !head.Detached && head.Branch == name {
		return fmt.Errorf("cannot delete %q: it is the current branch", name)
	}
	if err := s.store.DeleteBranch(ctx, name, force); err != nil {
		return err
	}
	slog.Info("branch deleted", slog.String("name", name), slog.Bool("force", force))
	return nil
}

func (s *Service) RenameBranch(ctx context.Context, oldName, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" {
		return grafterrors.NewInputError("branch name is empty")
	}
	if err := s.store.ValidateBranchName(ctx, newName); err != nil {
		return err
	}
	if err := s.store.RenameBranch(ctx, oldName, newName); err != nil {
		return err
	}
	slog.Info("branch renamed", slog.String("from", oldName), slog.String("to", newName))
	return nil
}

// SwitchBranch checks out name. Uncommitted changes to tracked files and any
// operation in progress block the switch and leave HEAD untouched.
func (s *Service) SwitchBranch(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return grafterrors.NewInputError("branch name is empty")
	}
	if err := s.requireSwitchable(ctx); err != nil {
		return err
	}
	if err := s.store.SwitchBranch(ctx, name); err != nil {
		return err
	}
	slog.Info("switched branch", slog.String("name", name))
	return nil
}

func (s *Service) requireSwitchable(ctx context.Context) error {
	if err := s.store.RequireNoOperation(); err != nil {
		return err
	}
	return s.store.RequireClean(ctx)
}
