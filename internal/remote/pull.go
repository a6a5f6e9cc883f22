package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/rebase"
)

type Strategy string

const (
	StrategyMerge  Strategy = "merge"
	StrategyRebase Strategy = "rebase"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyMerge:
		return StrategyMerge, nil
	case StrategyRebase:
		return StrategyRebase, nil
	}
	return "", grafterrors.NewInputError("unknown pull strategy %q; use merge or rebase", s)
}

// Relationship is how the local branch stood against its remote after the
// fetch.
type Relationship string

const (
	UpToDate    Relationship = "up_to_date"
	FastForward Relationship = "fast_forward"
	Diverged    Relationship = "diverged"
)

type PullRequest struct {
	Remote   string
	Strategy Strategy
	Progress backend.ProgressFunc
}

type PullOutcome struct {
	Success         bool                `json:"success"`
	Strategy        Strategy            `json:"strategy"`
	Relationship    Relationship        `json:"relationship"`
	PreviousHead    string              `json:"previous_head"`
	NewHead         string              `json:"new_head"`
	Conflicts       []conflict.Conflict `json:"conflicts"`
	MergeInProgress bool                `json:"merge_in_progress"`
	CommitsReplayed int                 `json:"commits_replayed"`
	Message         string              `json:"message"`
}

// Pull fetches the current branch's remote counterpart and reconciles it.
// A fast-forward moves the branch without creating a commit. Diverged
// histories are merged or rebased according to req.Strategy. A merge that
// conflicts stays in progress; a rebase that conflicts is rolled back, but
// the fetched tracking ref is kept.
func (s *Service) Pull(ctx context.Context, req PullRequest) (PullOutcome, error) {
	strategy, err := ParseStrategy(string(req.Strategy))
	if err != nil {
		return PullOutcome{}, err
	}
	if err := s.store.RequireNoOperation(); err != nil {
		return PullOutcome{}, err
	}
	if err := s.store.RequireClean(ctx); err != nil {
		return PullOutcome{}, err
	}
	head, err := s.currentBranch()
	if err != nil {
		return PullOutcome{}, err
	}
	t, err := s.resolveTarget(head.Branch, req.Remote)
	if err != nil {
		return PullOutcome{}, err
	}
	if _, err := s.fetchBranch(ctx, t, req.Progress); err != nil {
		return PullOutcome{}, err
	}
	tip, ok, err := s.store.RefHash(t.trackingRef())
	if err != nil {
		return PullOutcome{}, err
	}
	if !ok {
		return PullOutcome{}, &grafterrors.ReferenceNotFoundError{Name: t.display()}
	}

	out := PullOutcome{
		Strategy:     strategy,
		PreviousHead: head.Hash,
		NewHead:      head.Hash,
		Conflicts:    []conflict.Conflict{},
	}
	out.Relationship, err = s.relate(head.Hash, tip)
	if err != nil {
		return PullOutcome{}, err
	}
	logger := slog.With(slog.String("remote", t.display()), slog.String("relationship", string(out.Relationship)))

	switch out.Relationship {
	case UpToDate:
		out.Success = true
		out.Message = "Already up to date."
		return out, nil
	case FastForward:
		if err := s.store.FastForward(ctx, tip); err != nil {
			return PullOutcome{}, err
		}
		out.Success = true
		out.NewHead = tip
		out.Message = fmt.Sprintf("Fast-forwarded %s to %s", t.branch, shortHash(tip))
		logger.Info("pull fast-forwarded")
		return out, nil
	}

	if strategy == StrategyRebase {
		return s.pullRebase(ctx, t, head.Hash, tip, out)
	}
	msg := fmt.Sprintf("Merge remote-tracking branch '%s' into %s", t.display(), t.branch)
	conflicted, err := s.store.Merge(ctx, tip, msg)
	if err != nil {
		return PullOutcome{}, err
	}
	if conflicted {
		if out.Conflicts, err = conflict.Collect(s.store); err != nil {
			return PullOutcome{}, err
		}
		out.MergeInProgress = true
		out.Message = fmt.Sprintf("Merge of %s stopped on %d conflicted file(s); resolve them and commit, or abort the merge", t.display(), len(out.Conflicts))
		logger.Info("pull merge stopped on conflicts", slog.Int("conflicts", len(out.Conflicts)))
		return out, nil
	}
	now, err := s.store.Head()
	if err != nil {
		return PullOutcome{}, err
	}
	out.Success = true
	out.NewHead = now.Hash
	out.Message = fmt.Sprintf("Merged %s into %s", t.display(), t.branch)
	logger.Info("pull merged")
	return out, nil
}

func (s *Service) relate(head, tip string) (Relationship, error) {
	if head == tip {
		return UpToDate, nil
	}
	if ok, err := s.store.IsAncestor(tip, head); err != nil {
		return "", err
	} else if ok {
		return UpToDate, nil
	}
	if ok, err := s.store.IsAncestor(head, tip); err != nil {
		return "", err
	} else if ok {
		return FastForward, nil
	}
	return Diverged, nil
}

func (s *Service) pullRebase(ctx context.Context, t target, head, tip string, out PullOutcome) (PullOutcome, error) {
	base, err := s.store.MergeBase(head, tip)
	if err != nil {
		return PullOutcome{}, err
	}
	if base == "" {
		return PullOutcome{}, grafterrors.NewInputError("%s and %s share no history; merge them instead", t.branch, t.display())
	}
	commits, err := s.store.RangeCommits(ctx, base, head)
	if err != nil {
		return PullOutcome{}, err
	}
	plan := make([]rebase.Instruction, 0, len(commits))
	for _, c := range commits {
		plan = append(plan, rebase.Instruction{Hash: c.Hash, Action: rebase.ActionPick})
	}
	res, err := s.rebaser.Start(ctx, rebase.Request{Base: base, Onto: tip, Plan: plan, AbortOnConflict: true})
	if err != nil {
		return PullOutcome{}, err
	}
	if res.RebaseState == rebase.StateAborted {
		out.Conflicts = res.Conflicts
		out.Message = fmt.Sprintf("Rebase onto %s hit conflicts and was aborted; %s is unchanged and %s keeps the fetched commits", t.display(), t.branch, t.display())
		slog.Info("pull rebase aborted", slog.String("remote", t.display()), slog.Int("conflicts", len(res.Conflicts)))
		return out, nil
	}
	out.Success = res.Success
	out.NewHead = res.NewHead
	out.CommitsReplayed = len(plan)
	out.Message = fmt.Sprintf("Rebased %d commit(s) of %s onto %s", len(plan), t.branch, t.display())
	slog.Info("pull rebased", slog.String("remote", t.display()), slog.Int("commits", len(plan)))
	return out, nil
}

// MergeAbort abandons a merge left in progress by Pull.
func (s *Service) MergeAbort(ctx context.Context) error {
	state, err := s.store.State()
	if err != nil {
		return err
	}
	if state != backend.StateMerge {
		return fmt.Errorf("%w: no merge to abort", grafterrors.ErrNoOperationInProgress)
	}
	return s.store.MergeAbort(ctx)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
