package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// CheckoutDetached moves HEAD to hash without a branch and updates the
// index and working tree.
func (r *Repo) CheckoutDetached(ctx context.Context, hash string) error {
	_, err := r.git(ctx, "checkout", "--quiet", "--detach", hash)
	return err
}

// ResetHard points HEAD at hash and discards index and worktree changes.
// It also clears MERGE_HEAD and other merge bookkeeping.
func (r *Repo) ResetHard(ctx context.Context, hash string) error {
	_, err := r.git(ctx, "reset", "--hard", "--quiet", hash)
	return err
}

// UpdateRef moves a ref to newHash, failing if it no longer points at oldHash.
func (r *Repo) UpdateRef(ctx context.Context, ref, newHash, oldHash, reason string) error {
	args := []string{"update-ref", "-m", reason, ref, newHash}
	if oldHash != "" {
		args = append(args, oldHash)
	}
	_, err := r.git(ctx, args...)
	return err
}

// AttachHead points HEAD at a branch ref without touching the worktree.
func (r *Repo) AttachHead(ctx context.Context, ref string) error {
	_, err := r.git(ctx, "symbolic-ref", "HEAD", ref)
	return err
}

// CherryPickNoCommit applies the changes a commit introduced on top of the
// current index and worktree without committing. Merge commits are applied
// relative to their first parent. It reports whether conflicts were left in
// the index.
func (r *Repo) CherryPickNoCommit(ctx context.Context, hash string) (bool, error) {
	c, err := r.ReadCommit(hash)
	if err != nil {
		return false, err
	}
	args := []string{"cherry-pick", "--no-commit"}
	if len(c.ParentHashes) > 1 {
		args = append(args, "-m", strconv.Itoa(1))
	}
	args = append(args, c.Hash)
	return r.runConflicting(ctx, args)
}

// Merge performs a three-way merge of tip into HEAD. A clean merge commits
// with message; a conflicted one leaves MERGE_HEAD and the conflicted index
// for the caller to resolve or abort.
func (r *Repo) Merge(ctx context.Context, tip, message string) (bool, error) {
	return r.runConflicting(ctx, []string{"merge", "--no-ff", "--no-edit", "-m", message, tip})
}

func (r *Repo) MergeAbort(ctx context.Context) error {
	_, err := r.git(ctx, "merge", "--abort")
	return err
}

// FastForward advances the current branch to tip. It fails when tip is not a
// descendant of HEAD.
func (r *Repo) FastForward(ctx context.Context, tip string) error {
	_, err := r.git(ctx, "merge", "--ff-only", "--quiet", tip)
	return err
}

// runConflicting runs a command whose exit status 1 may mean "stopped on
// conflicts". The index decides: status 1 with no unmerged entries is an error.
func (r *Repo) runConflicting(ctx context.Context, args []string) (bool, error) {
	res, err := r.runGit(ctx, gitCall{args: args, allowExit1: true})
	if err != nil {
		return false, err
	}
	conflicts, err := r.IndexConflicts()
	if err != nil {
		return false, err
	}
	if len(conflicts) > 0 {
		slog.Debug("command stopped on conflicts", slog.String("cmd", args[0]), slog.Int("paths", len(conflicts)))
		return true, nil
	}
	if res.exitCode != 0 {
		return false, fmt.Errorf("git %s: %s", args[0], firstNonEmpty(res.stderr, res.stdout))
	}
	return false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
