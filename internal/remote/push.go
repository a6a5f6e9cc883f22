package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

type PushMode string

const (
	PushPlain          PushMode = "plain"
	PushForce          PushMode = "force"
	PushForceWithLease PushMode = "force-with-lease"
)

func ParsePushMode(s string) (PushMode, error) {
	switch m := PushMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", PushPlain:
		return PushPlain, nil
	case PushForce, PushForceWithLease:
		return m, nil
	case "lease", "force_with_lease":
		return PushForceWithLease, nil
	}
	return "", grafterrors.NewInputError("unknown push mode %q; use plain, force or force-with-lease", s)
}

type PushRequest struct {
	Remote string
	// Branch defaults to the current branch.
	Branch string
	Mode   PushMode
	// ExpectedOld is the remote hash a lease push insists on. Empty means the
	// remote-tracking ref.
	ExpectedOld string
	SetUpstream bool
	Progress    backend.ProgressFunc
}

// PushOutcome reports a push. A rejection is a normal outcome, not an error:
// Success is false and Reason says why.
type PushOutcome struct {
	Success  bool     `json:"success"`
	Rejected bool     `json:"rejected"`
	Reason   string   `json:"reason,omitempty"`
	UpToDate bool     `json:"up_to_date"`
	Remote   string   `json:"remote"`
	Branch   string   `json:"branch"`
	Mode     PushMode `json:"mode"`
	Progress []string `json:"progress"`
}

const (
	nonFastForwardPrefix = "non-fast-forward update"
	remoteRejectPrefix   = "command error on"
)

func (s *Service) Push(ctx context.Context, req PushRequest) (PushOutcome, error) {
	mode, err := ParsePushMode(string(req.Mode))
	if err != nil {
		return PushOutcome{}, err
	}
	if req.ExpectedOld != "" {
		if mode != PushForceWithLease {
			return PushOutcome{}, grafterrors.NewInputError("an expected remote hash only applies to force-with-lease")
		}
		if !plumbing.IsHash(req.ExpectedOld) {
			return PushOutcome{}, grafterrors.NewInputError("expected remote hash %q is not a full commit hash", req.ExpectedOld)
		}
	}
	branch := req.Branch
	if branch == "" {
		head, err := s.currentBranch()
		if err != nil {
			return PushOutcome{}, err
		}
		branch = head.Branch
	}
	if _, ok, err := s.store.RefHash(plumbing.NewBranchReferenceName(branch).String()); err != nil {
		return PushOutcome{}, err
	} else if !ok {
		return PushOutcome{}, &grafterrors.ReferenceNotFoundError{Name: branch}
	}
	t, err := s.resolveTarget(branch, req.Remote)
	if err != nil {
		return PushOutcome{}, err
	}
	if t.remoteBranch != branch {
		// Same rule as push.default=simple: the lease and the remote ref are
		// named after the local branch.
		return PushOutcome{}, grafterrors.NewInputError(
			"branch %s tracks %s under a different name; rename the branch or its upstream before pushing", branch, t.display())
	}

	out := PushOutcome{Remote: t.remote, Branch: branch, Mode: mode, Progress: []string{}}
	var mu sync.Mutex
	progress := func(line string) {
		mu.Lock()
		out.Progress = append(out.Progress, line)
		mu.Unlock()
		if req.Progress != nil {
			req.Progress(line)
		}
	}

	preq := backend.PushRequest{
		Remote:   t.remote,
		Branch:   branch,
		Force:    mode != PushPlain,
		Lease:    mode == PushForceWithLease,
		Expected: req.ExpectedOld,
		Progress: progress,
	}
	if preq.Lease && preq.Expected == "" {
		if _, tracked, err := s.store.RefHash(t.trackingRef()); err != nil {
			return PushOutcome{}, err
		} else if !tracked {
			// Nothing to lease against. That is only safe when the branch
			// does not exist on the remote yet.
			_, exists, err := s.store.RemoteBranchHash(ctx, t.remote, branch)
			if err != nil {
				return PushOutcome{}, err
			}
			if exists {
				out.Rejected = true
				out.Reason = fmt.Sprintf("stale info: %s exists on the remote but has never been fetched", t.display())
				return out, nil
			}
			preq.Force, preq.Lease = false, false
		}
	}

	logger := slog.With(slog.String("remote", t.remote), slog.String("branch", branch), slog.String("mode", string(mode)))
	err = s.store.Push(ctx, preq)
	switch {
	case err == nil:
		out.Success = true
	case errors.Is(err, gitlib.NoErrAlreadyUpToDate):
		out.Success = true
		out.UpToDate = true
	case strings.HasPrefix(err.Error(), nonFastForwardPrefix):
		out.Rejected = true
		if mode == PushForceWithLease {
			out.Reason = fmt.Sprintf("stale info: %s has moved since it was last fetched", t.display())
		} else {
			out.Reason = fmt.Sprintf("non-fast-forward: %s has commits you do not have; pull first or force push", t.display())
		}
	case preq.Lease && errors.Is(err, plumbing.ErrReferenceNotFound):
		out.Rejected = true
		out.Reason = fmt.Sprintf("stale info: no remote-tracking ref for %s; fetch first", t.display())
	case strings.Contains(err.Error(), remoteRejectPrefix):
		out.Rejected = true
		out.Reason = err.Error()
	case errors.Is(err, grafterrors.ErrReferenceNotFound):
		return PushOutcome{}, err
	default:
		return PushOutcome{}, &grafterrors.TransportError{Op: "push", Remote: t.remote, Err: err}
	}
	if out.Rejected {
		logger.Info("push rejected", slog.String("reason", out.Reason))
		return out, nil
	}
	if req.SetUpstream {
		if err := s.store.SetUpstream(branch, t.remote); err != nil {
			return out, err
		}
	}
	logger.Info("pushed", slog.Bool("up_to_date", out.UpToDate))
	return out, nil
}
