package rebase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

// Store is the part of the object store a rebase drives.
type Store interface {
	conflict.IndexReader
	RequireNoOperation() error
	RequireClean(ctx context.Context) error
	Status(ctx context.Context) (backend.WorkingStatus, error)
	Head() (backend.HeadInfo, error)
	ResolveCommit(rev string) (string, error)
	ReadCommit(hash string) (*backend.Commit, error)
	RangeCommits(ctx context.Context, base, head string) ([]*backend.Commit, error)

	CheckoutDetached(ctx context.Context, hash string) error
	ResetHard(ctx context.Context, hash string) error
	UpdateRef(ctx context.Context, ref, newHash, oldHash, reason string) error
	AttachHead(ctx context.Context, ref string) error
	CherryPickNoCommit(ctx context.Context, hash string) (bool, error)
	Commit(ctx context.Context, opts backend.CommitOptions) (string, error)

	RebaseBegin(m backend.RebaseMarkers, todo []byte) error
	RebaseProgress(msgNum, end int, todo []byte) error
	RebaseLoad() (backend.RebaseMarkers, []byte, error)
	RebaseFinish() error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Request starts a rebase. Plan lists commits from Base..HEAD. Onto is where
// they are replayed and defaults to Base.
type Request struct {
	Base string
	Onto string
	Plan []Instruction
	// AbortOnConflict gives up on the first conflict instead of stopping,
	// leaving the repository as it was before Start.
	AbortOnConflict bool
}

const detachedHeadName = "detached HEAD"

// Commits lists base..HEAD oldest first, each offered as a pick.
func (e *Engine) Commits(ctx context.Context, base string) ([]Commit, error) {
	head, err := e.store.Head()
	if err != nil {
		return nil, err
	}
	if head.Unborn {
		return nil, grafterrors.ErrUnbornHead
	}
	baseHash, err := e.store.ResolveCommit(base)
	if err != nil {
		return nil, err
	}
	commits, err := e.store.RangeCommits(ctx, baseHash, head.Hash)
	if err != nil {
		return nil, err
	}
	out := make([]Commit, 0, len(commits))
	for _, c := range commits {
		out = append(out, Commit{
			Hash:      c.Hash,
			ShortHash: shortHash(c.Hash),
			Message:   strings.TrimSpace(c.Message),
			Author:    c.Author.Name,
			Timestamp: c.Author.When.Unix(),
			Action:    ActionPick,
		})
	}
	return out, nil
}

// Validate checks a plan without touching the repository.
func (e *Engine) Validate(plan []Instruction) ValidationResult {
	res, _ := validatePlan(normalizePlan(plan), e.store.ResolveCommit)
	return res
}

// Preview summarises what a plan would do.
func (e *Engine) Preview(plan []Instruction) PlanSummary {
	plan = normalizePlan(plan)
	res, _ := validatePlan(plan, e.store.ResolveCommit)
	return summarize(plan, res)
}

func (e *Engine) Start(ctx context.Context, req Request) (Result, error) {
	if err := e.store.RequireNoOperation(); err != nil {
		return Result{}, err
	}
	if err := e.store.RequireClean(ctx); err != nil {
		return Result{}, err
	}
	head, err := e.store.Head()
	if err != nil {
		return Result{}, err
	}
	if head.Unborn {
		return Result{}, grafterrors.ErrUnbornHead
	}
	base, err := e.store.ResolveCommit(req.Base)
	if err != nil {
		return Result{}, err
	}
	onto := base
	if req.Onto != "" {
		if onto, err = e.store.ResolveCommit(req.Onto); err != nil {
			return Result{}, err
		}
	}

	plan := normalizePlan(req.Plan)
	validation, resolved := validatePlan(plan, e.store.ResolveCommit)
	if validation.IsValid {
		if rangeErrs := e.checkRange(ctx, base, head.Hash, resolved); len(rangeErrs) > 0 {
			validation.Errors = append(validation.Errors, rangeErrs...)
			validation.IsValid = false
		}
	}
	if !validation.IsValid {
		return Result{}, &grafterrors.ValidationError{Errors: validation.Errors}
	}
	for i := range plan {
		plan[i].Hash = resolved[i]
	}

	s := &session{
		ID:              uuid.NewString(),
		Base:            base,
		Plan:            plan,
		AbortOnConflict: req.AbortOnConflict,
		markers: backend.RebaseMarkers{
			HeadName: detachedHeadName,
			OrigHead: head.Hash,
			Onto:     onto,
			End:      len(plan),
		},
	}
	if !head.Detached {
		s.markers.HeadName = "refs/heads/" + head.Branch
	}
	todo, err := s.encode()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.RebaseBegin(s.markers, todo); err != nil {
		return Result{}, err
	}
	slog.Info("rebase started",
		slog.String("session", s.ID),
		slog.String("head", s.markers.HeadName),
		slog.String("onto", shortHash(onto)),
		slog.Int("instructions", len(plan)))
	if err := e.store.CheckoutDetached(ctx, onto); err != nil {
		return Result{}, e.fail(ctx, s, fmt.Errorf("check out %s: %w", shortHash(onto), err))
	}
	return e.run(ctx, s)
}

// checkRange rejects plan commits that are not in base..head.
func (e *Engine) checkRange(ctx context.Context, base, head string, hashes []string) []string {
	commits, err := e.store.RangeCommits(ctx, base, head)
	if err != nil {
		return []string{err.Error()}
	}
	inRange := make(map[string]bool, len(commits))
	for _, c := range commits {
		inRange[c.Hash] = true
	}
	var errs []string
	for i, h := range hashes {
		if !inRange[h] {
			errs = append(errs, fmt.Sprintf("instruction %d: commit %s is not between the base and HEAD", i+1, shortHash(h)))
		}
	}
	return errs
}

// Continue resumes a session stopped for an edit or on a conflict. The
// position is re-read from the repository, not from memory.
func (e *Engine) Continue(ctx context.Context) (Result, error) {
	s, err := e.load()
	if err != nil {
		return Result{}, err
	}
	switch s.Stopped {
	case stopConflict:
		conflicts, err := conflict.Collect(e.store)
		if err != nil {
			return Result{}, err
		}
		if len(conflicts) > 0 {
			return Result{
				CurrentCommitIndex: s.cursor + 1,
				TotalCommits:       len(s.Plan),
				Conflicts:          conflicts,
				Message:            fmt.Sprintf("%d conflicted %s must be resolved and staged before continuing", len(conflicts), plural(len(conflicts), "file")),
				RebaseState:        StateConflict,
			}, nil
		}
		status, err := e.store.Status(ctx)
		if err != nil {
			return Result{}, err
		}
		if status.HasWorktree {
			return Result{}, fmt.Errorf("stage your conflict resolution before continuing: %w", grafterrors.ErrDirtyWorkingTree)
		}
		ins := s.Plan[s.cursor]
		s.Stopped = stopNone
		if stop, err := e.complete(ctx, s, ins); err != nil {
			return Result{}, e.fail(ctx, s, err)
		} else if stop {
			return e.stopForEdit(ctx, s)
		}
	case stopEdit:
		if err := e.resumeEdit(ctx, s); err != nil {
			return Result{}, err
		}
	}
	return e.run(ctx, s)
}

// resumeEdit folds whatever the caller staged during an edit stop into
// HEAD. The group message follows HEAD so a reworded amend is kept.
func (e *Engine) resumeEdit(ctx context.Context, s *session) error {
	status, err := e.store.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Unmerged) > 0 || status.HasWorktree {
		return fmt.Errorf("stage or discard your edits before continuing: %w", grafterrors.ErrDirtyWorkingTree)
	}
	head, err := e.store.Head()
	if err != nil {
		return err
	}
	c, err := e.store.ReadCommit(head.Hash)
	if err != nil {
		return err
	}
	if s.Pending != nil {
		s.Pending.Messages = []string{strings.TrimSpace(c.Message)}
	}
	if status.HasStaged {
		if _, err := e.store.Commit(ctx, backend.CommitOptions{
			Message:    c.Message,
			Amend:      true,
			AllowEmpty: true,
			NoVerify:   true,
		}); err != nil {
			return e.fail(ctx, s, fmt.Errorf("amend edited commit: %w", err))
		}
	}
	s.Stopped = stopNone
	return nil
}

// Abort restores the branch, HEAD, index and worktree to where they were
// before the session started and removes the session.
func (e *Engine) Abort(ctx context.Context) (Result, error) {
	m, data, err := e.store.RebaseLoad()
	if err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, errForeignRebase
	}
	if err := e.restore(ctx, m); err != nil {
		return Result{}, err
	}
	slog.Info("rebase aborted", slog.String("head", m.HeadName))
	return Result{
		Success:     true,
		Message:     "rebase aborted; HEAD restored to " + shortHash(m.OrigHead),
		RebaseState: StateAborted,
		Conflicts:   []conflict.Conflict{},
	}, nil
}

func (e *Engine) Status() (Status, error) {
	m, data, err := e.store.RebaseLoad()
	if errors.Is(err, grafterrors.ErrNoOperationInProgress) {
		return Status{Conflicts: []conflict.Conflict{}}, nil
	}
	if err != nil {
		return Status{}, err
	}
	conflicts, err := conflict.Collect(e.store)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		IsInProgress:       true,
		CurrentCommitIndex: m.MsgNum,
		TotalCommits:       m.End,
		HasConflicts:       len(conflicts) > 0,
		Conflicts:          conflicts,
		OntoCommit:         m.Onto,
		OriginalHead:       m.OrigHead,
		State:              StateInProgress,
	}
	if len(data) == 0 {
		return st, nil
	}
	s, err := decodeSession(m, data)
	if err != nil {
		return Status{}, err
	}
	switch s.Stopped {
	case stopConflict:
		st.State = StateConflict
	case stopEdit:
		st.State = StateStoppedForEdit
	}
	return st, nil
}

func (e *Engine) load() (*session, error) {
	m, data, err := e.store.RebaseLoad()
	if err != nil {
		return nil, err
	}
	return decodeSession(m, data)
}

// run applies instructions from the cursor until the plan ends or the
// session has to stop.
func (e *Engine) run(ctx context.Context, s *session) (Result, error) {
	for s.cursor < len(s.Plan) {
		if err := ctx.Err(); err != nil {
			return Result{}, e.fail(ctx, s, err)
		}
		ins := s.Plan[s.cursor]
		if ins.Action == ActionDrop {
			slog.Debug("rebase drop", slog.String("commit", shortHash(ins.Hash)))
			s.cursor++
			if err := e.persist(s); err != nil {
				return Result{}, e.fail(ctx, s, err)
			}
			continue
		}
		if ins.Action.startsCommit() {
			if err := e.flush(ctx, s); err != nil {
				return Result{}, e.fail(ctx, s, err)
			}
		}
		conflicted, err := e.store.CherryPickNoCommit(ctx, ins.Hash)
		if err != nil {
			return Result{}, e.fail(ctx, s, fmt.Errorf("apply %s: %w", shortHash(ins.Hash), err))
		}
		if conflicted {
			return e.stopOnConflict(ctx, s)
		}
		stop, err := e.complete(ctx, s, ins)
		if err != nil {
			return Result{}, e.fail(ctx, s, err)
		}
		if stop {
			return e.stopForEdit(ctx, s)
		}
		if err := e.persist(s); err != nil {
			return Result{}, e.fail(ctx, s, err)
		}
	}
	if err := e.flush(ctx, s); err != nil {
		return Result{}, e.fail(ctx, s, err)
	}
	return e.finish(ctx, s)
}

// complete records an applied instruction in the current group and moves
// the cursor past it. It reports whether the session must stop for an edit.
func (e *Engine) complete(ctx context.Context, s *session, ins Instruction) (bool, error) {
	c, err := e.store.ReadCommit(ins.Hash)
	if err != nil {
		return false, err
	}
	message := strings.TrimSpace(c.Message)
	switch ins.Action {
	case ActionPick, ActionEdit:
		s.Pending = newGroup(c, message)
	case ActionReword:
		reworded := strings.TrimSpace(ins.NewMessage)
		if reworded == "" {
			reworded = RewordPlaceholder
		}
		s.Pending = newGroup(c, reworded)
	case ActionSquash, ActionFixup:
		if s.Pending == nil {
			return false, &grafterrors.InvariantError{Detail: fmt.Sprintf("%s %s has no commit to combine with", ins.Action, shortHash(ins.Hash))}
		}
		if ins.Action == ActionSquash && message != "" {
			s.Pending.Messages = append(s.Pending.Messages, message)
		}
	}
	s.cursor++
	slog.Debug("rebase step", slog.String("action", string(ins.Action)), slog.String("commit", shortHash(ins.Hash)), slog.Int("position", s.cursor))
	if ins.Action != ActionEdit {
		return false, nil
	}
	if err := e.flush(ctx, s); err != nil {
		return false, err
	}
	// Keep the group open so squashes after the edit amend it.
	s.Pending = &group{Lead: c.Hash, Author: toSignature(c.Author), Messages: []string{message}, Committed: true}
	return true, nil
}

func newGroup(c *backend.Commit, message string) *group {
	return &group{Lead: c.Hash, Author: toSignature(c.Author), Messages: []string{message}}
}

func toSignature(s backend.Signature) signature {
	return signature{Name: s.Name, Email: s.Email, When: s.When}
}

// flush turns the staged group into a commit, or amends HEAD when the group
// was already committed at an edit stop.
func (e *Engine) flush(ctx context.Context, s *session) error {
	g := s.Pending
	if g == nil {
		return nil
	}
	opts := backend.CommitOptions{
		Message:    combineMessages(g.Messages),
		AllowEmpty: true,
		NoVerify:   true,
		Author:     &backend.Signature{Name: g.Author.Name, Email: g.Author.Email, When: g.Author.When},
	}
	if g.Committed {
		if len(g.Messages) == 1 {
			status, err := e.store.Status(ctx)
			if err != nil {
				return err
			}
			if !status.HasStaged {
				s.Pending = nil
				return nil
			}
		}
		opts.Amend = true
	}
	hash, err := e.store.Commit(ctx, opts)
	if err != nil {
		return fmt.Errorf("commit %s: %w", shortHash(g.Lead), err)
	}
	if !g.Committed {
		s.Produced++
	}
	slog.Debug("rebase commit", slog.String("from", shortHash(g.Lead)), slog.String("new", shortHash(hash)), slog.Bool("amend", g.Committed))
	s.Pending = nil
	return nil
}

func combineMessages(messages []string) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return "(no message)"
	}
	return strings.Join(parts, "\n\n")
}

func (e *Engine) persist(s *session) error {
	todo, err := s.encode()
	if err != nil {
		return err
	}
	return e.store.RebaseProgress(s.msgNum(), len(s.Plan), todo)
}

func (e *Engine) stopOnConflict(ctx context.Context, s *session) (Result, error) {
	conflicts, err := conflict.Collect(e.store)
	if err != nil {
		return Result{}, e.fail(ctx, s, err)
	}
	position := s.cursor + 1
	ins := s.Plan[s.cursor]
	if s.AbortOnConflict {
		if err := e.restore(ctx, s.markers); err != nil {
			return Result{}, err
		}
		slog.Info("rebase gave up on conflict", slog.String("session", s.ID), slog.Int("position", position))
		return Result{
			CurrentCommitIndex: position,
			TotalCommits:       len(s.Plan),
			Conflicts:          conflicts,
			Message:            fmt.Sprintf("applying %s conflicted; nothing was changed", shortHash(ins.Hash)),
			RebaseState:        StateAborted,
		}, nil
	}
	s.Stopped = stopConflict
	if err := e.persist(s); err != nil {
		return Result{}, e.fail(ctx, s, err)
	}
	slog.Info("rebase stopped on conflict", slog.String("session", s.ID), slog.Int("position", position), slog.Int("paths", len(conflicts)))
	return Result{
		CurrentCommitIndex: position,
		TotalCommits:       len(s.Plan),
		Conflicts:          conflicts,
		Message:            fmt.Sprintf("could not apply %s: resolve the conflicts, stage them and continue, or abort", shortHash(ins.Hash)),
		RebaseState:        StateConflict,
	}, nil
}

func (e *Engine) stopForEdit(ctx context.Context, s *session) (Result, error) {
	s.Stopped = stopEdit
	if err := e.persist(s); err != nil {
		return Result{}, e.fail(ctx, s, err)
	}
	ins := s.Plan[s.cursor-1]
	slog.Info("rebase stopped for edit", slog.String("session", s.ID), slog.String("commit", shortHash(ins.Hash)))
	return Result{
		Success:            true,
		CurrentCommitIndex: s.cursor,
		TotalCommits:       len(s.Plan),
		Conflicts:          []conflict.Conflict{},
		Message:            fmt.Sprintf("stopped at %s; amend it and continue", shortHash(ins.Hash)),
		RebaseState:        StateStoppedForEdit,
	}, nil
}

// finish points the original branch at the rewritten history and ends the
// session.
func (e *Engine) finish(ctx context.Context, s *session) (Result, error) {
	head, err := e.store.Head()
	if err != nil {
		return Result{}, e.fail(ctx, s, err)
	}
	if strings.HasPrefix(s.markers.HeadName, "refs/heads/") {
		reason := "rebase (finish): " + s.markers.HeadName + " onto " + s.markers.Onto
		if err := e.store.UpdateRef(ctx, s.markers.HeadName, head.Hash, s.markers.OrigHead, reason); err != nil {
			return Result{}, e.fail(ctx, s, &grafterrors.InvariantError{Detail: fmt.Sprintf("%s moved during the rebase: %v", s.markers.HeadName, err)})
		}
		if err := e.store.AttachHead(ctx, s.markers.HeadName); err != nil {
			return Result{}, e.fail(ctx, s, err)
		}
	}
	if err := e.store.RebaseFinish(); err != nil {
		return Result{}, err
	}
	slog.Info("rebase completed", slog.String("session", s.ID), slog.Int("commits", s.Produced), slog.String("head", shortHash(head.Hash)))
	return Result{
		Success:            true,
		CurrentCommitIndex: len(s.Plan),
		TotalCommits:       len(s.Plan),
		Conflicts:          []conflict.Conflict{},
		Message:            fmt.Sprintf("rebased %d %s onto %s", len(s.Plan), plural(len(s.Plan), "instruction"), shortHash(s.markers.Onto)),
		RebaseState:        StateCompleted,
		NewHead:            head.Hash,
	}, nil
}

// fail aborts the session after an unexpected error so no half-rewritten
// state is left behind.
func (e *Engine) fail(ctx context.Context, s *session, cause error) error {
	slog.Warn("rebase failed; aborting", slog.String("session", s.ID), slog.Any("error", cause))
	if err := e.restore(context.WithoutCancel(ctx), s.markers); err != nil {
		var inv *grafterrors.InvariantError
		if errors.As(cause, &inv) {
			inv.Cleanup = err
			return inv
		}
		return &grafterrors.InvariantError{Detail: cause.Error(), Cleanup: err}
	}
	return fmt.Errorf("rebase aborted: %w", cause)
}

func (e *Engine) restore(ctx context.Context, m backend.RebaseMarkers) error {
	if err := e.store.ResetHard(ctx, m.OrigHead); err != nil {
		return fmt.Errorf("reset to %s: %w", shortHash(m.OrigHead), err)
	}
	if strings.HasPrefix(m.HeadName, "refs/heads/") {
		if err := e.store.UpdateRef(ctx, m.HeadName, m.OrigHead, "", "rebase (abort): returning to "+m.HeadName); err != nil {
			return fmt.Errorf("restore %s: %w", m.HeadName, err)
		}
		if err := e.store.AttachHead(ctx, m.HeadName); err != nil {
			return fmt.Errorf("reattach %s: %w", m.HeadName, err)
		}
	}
	return e.store.RebaseFinish()
}
