package backend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// ListRefs enumerates local branches, remote-tracking branches and tags once.
// Tags are peeled to the commit they name; remote HEAD symrefs are skipped.
func (r *Repo) ListRefs() ([]Ref, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	iter, err := r.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		out := Ref{Hash: ref.Hash().String(), Name: name.Short(), FullName: name.String()}
		switch {
		case name.IsBranch():
			out.Kind = RefKindBranch
			out.Current = !head.Detached && head.Branch == out.Name
			if b, ok := cfg.Branches[out.Name]; ok {
				out.Upstream = upstreamName(b)
			}
		case name.IsRemote():
			if strings.HasSuffix(out.Name, "/HEAD") {
				return nil
			}
			out.Kind = RefKindRemoteBranch
		case name.IsTag():
			out.Kind = RefKindTag
			peeled, ok := r.peelToCommit(ref.Hash())
			if !ok {
				return nil
			}
			out.Hash = peeled.String()
		default:
			return nil
		}
		refs = append(refs, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(refs, func(a, b Ref) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return refs, nil
}

func upstreamName(b *config.Branch) string {
	if b == nil || b.Remote == "" || b.Merge == "" {
		return ""
	}
	if b.Remote == "." {
		return b.Merge.Short()
	}
	return b.Remote + "/" + b.Merge.Short()
}

// Upstream returns the remote and remote branch a local branch tracks.
func (r *Repo) Upstream(branch string) (remote string, remoteBranch string, ok bool, err error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return "", "", false, fmt.Errorf("read config: %w", err)
	}
	b, found := cfg.Branches[branch]
	if !found || b.Remote == "" || b.Merge == "" {
		return "", "", false, nil
	}
	return b.Remote, b.Merge.Short(), true, nil
}

// SetUpstream records remote/branch as the upstream of a local branch.
func (r *Repo) SetUpstream(branch, remote string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg.Branches[branch] = &config.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	if err := r.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (r *Repo) Remotes() ([]RemoteInfo, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, err
	}
	out := make([]RemoteInfo, 0, len(remotes))
	for _, rem := range remotes {
		cfg := rem.Config()
		info := RemoteInfo{Name: cfg.Name}
		if len(cfg.URLs) > 0 {
			info.URL = cfg.URLs[0]
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b RemoteInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Repo) Remote(name string) (RemoteInfo, error) {
	rem, err := r.repo.Remote(name)
	if err != nil {
		if errors.Is(err, gitlib.ErrRemoteNotFound) {
			return RemoteInfo{}, &grafterrors.ReferenceNotFoundError{Name: name}
		}
		return RemoteInfo{}, err
	}
	cfg := rem.Config()
	info := RemoteInfo{Name: cfg.Name}
	if len(cfg.URLs) > 0 {
		info.URL = cfg.URLs[0]
	}
	return info, nil
}

// ValidateBranchName asks git whether name is a valid branch name.
func (r *Repo) ValidateBranchName(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return grafterrors.NewInputError("branch name is empty")
	}
	if _, err := r.git(ctx, "check-ref-format", "--branch", name); err != nil {
		return grafterrors.NewInputError("%q is not a valid branch name", name)
	}
	return nil
}

func (r *Repo) CreateBranch(ctx context.Context, name, start string) error {
	if err := r.ValidateBranchName(ctx, name); err != nil {
		return err
	}
	args := []string{"branch", "--quiet", name}
	if start != "" {
		hash, err := r.ResolveCommit(start)
		if err != nil {
			return err
		}
		args = append(args, hash)
	}
	_, err := r.git(ctx, args...)
	return classifyBranchError(name, err)
}

func (r *Repo) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.git(ctx, "branch", flag, "--", name)
	return classifyBranchError(name, err)
}

func (r *Repo) RenameBranch(ctx context.Context, oldName, newName string) error {
	if err := r.ValidateBranchName(ctx, newName); err != nil {
		return err
	}
	_, err := r.git(ctx, "branch", "-m", "--", oldName, newName)
	return classifyBranchError(oldName, err)
}

// SwitchBranch checks out a local branch, or creates a tracking branch when a
// single remote has a branch with that name.
func (r *Repo) SwitchBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "switch", "--quiet", name)
	return classifyBranchError(name, err)
}

func classifyBranchError(name string, err error) error {
	if err == nil {
		return nil
	}
	var cmdErr *grafterrors.GitCommandError
	if !errors.As(err, &cmdErr) {
		return err
	}
	msg := cmdErr.Stderr
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "invalid reference"):
		return &grafterrors.ReferenceNotFoundError{Name: name}
	case strings.Contains(msg, "already exists"):
		return grafterrors.NewInputError("a branch named %q already exists", name)
	case strings.Contains(msg, "not a valid branch name"):
		return grafterrors.NewInputError("%q is not a valid branch name", name)
	case strings.Contains(msg, "not fully merged"):
		return fmt.Errorf("branch %q is not fully merged; delete it with force", name)
	case strings.Contains(msg, "checked out"), strings.Contains(msg, "used by worktree"):
		return fmt.Errorf("cannot delete branch %q: it is checked out", name)
	case strings.Contains(msg, "would be overwritten"):
		return grafterrors.ErrDirtyWorkingTree
	}
	return err
}
