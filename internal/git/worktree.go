package git

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dancode-188/graft/internal/conflict"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

// WorkingDirectoryStatus splits the working directory into the files staged
// for the next commit, the files changed on disk (untracked included) and the
// unresolved conflicts.
type WorkingDirectoryStatus struct {
	Staged     []backend.WorkingFile `json:"staged"`
	Unstaged   []backend.WorkingFile `json:"unstaged"`
	Conflicted []conflict.Conflict   `json:"conflicted"`
}

func (s *Service) WorkingStatus(ctx context.Context) (WorkingDirectoryStatus, error) {
	status, err := s.store.Status(ctx)
	if err != nil {
		return WorkingDirectoryStatus{}, err
	}
	out := WorkingDirectoryStatus{
		Staged:     []backend.WorkingFile{},
		Unstaged:   []backend.WorkingFile{},
		Conflicted: []conflict.Conflict{},
	}
	for _, f := range status.Files {
		switch {
		case f.Status == "conflicted":
		case f.IsStaged:
			out.Staged = append(out.Staged, f)
		default:
			out.Unstaged = append(out.Unstaged, f)
		}
	}
	if len(status.Unmerged) > 0 {
		conflicts, err := conflict.Collect(s.store)
		if err != nil {
			return WorkingDirectoryStatus{}, err
		}
		out.Conflicted = conflicts
	}
	return out, nil
}

func (s *Service) Stage(ctx context.Context, files []string) error {
	files, err := cleanPaths(files)
	if err != nil {
		return err
	}
	slog.Debug("stage", slog.Int("files", len(files)))
	return s.store.Stage(ctx, files)
}

func (s *Service) Unstage(ctx context.Context, files []string) error {
	files, err := cleanPaths(files)
	if err != nil {
		return err
	}
	slog.Debug("unstage", slog.Int("files", len(files)))
	return s.store.Unstage(ctx, files)
}

// Discard drops worktree changes to files. Untracked files are deleted.
func (s *Service) Discard(ctx context.Context, files []string) error {
	files, err := cleanPaths(files)
	if err != nil {
		return err
	}
	slog.Info("discard changes", slog.Int("files", len(files)))
	return s.store.Discard(ctx, files)
}

// CreateCommit commits the index, or rewrites HEAD when amend is set. An open
// merge is concluded by a commit even when nothing new is staged.
func (s *Service) CreateCommit(ctx context.Context, message string, amend bool) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", grafterrors.NewInputError("commit message is empty")
	}
	if amend {
		head, err := s.store.Head()
		if err != nil {
			return "", err
		}
		if head.Unborn {
			return "", grafterrors.ErrUnbornHead
		}
	}
	hash, err := s.store.Commit(ctx, backend.CommitOptions{Message: message, Amend: amend})
	if err != nil {
		return "", err
	}
	slog.Info("commit created", slog.String("hash", hash), slog.Bool("amend", amend))
	return hash, nil
}

func cleanPaths(files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, grafterrors.NewInputError("no files given")
	}
	return out, nil
}
