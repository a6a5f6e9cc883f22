package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dancode-188/graft/internal/git/backend"
)

type FetchOutcome struct {
	Remote  string `json:"remote"`
	Updated bool   `json:"updated"`
}

// Fetch updates every remote-tracking branch of remote. An empty remote means
// the current branch's upstream remote, or the default remote.
func (s *Service) Fetch(ctx context.Context, remote string, progress backend.ProgressFunc) (FetchOutcome, error) {
	if remote == "" {
		remote = s.defaultRemote
		if head, err := s.store.Head(); err == nil && head.Branch != "" {
			if up, _, ok, err := s.store.Upstream(head.Branch); err == nil && ok {
				remote = up
			}
		}
	}
	if _, err := s.store.Remote(remote); err != nil {
		return FetchOutcome{}, err
	}
	spec := fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote)
	updated, err := s.store.Fetch(ctx, remote, []string{spec}, progress)
	if err != nil {
		return FetchOutcome{}, err
	}
	slog.Info("fetched", slog.String("remote", remote), slog.Bool("updated", updated))
	return FetchOutcome{Remote: remote, Updated: updated}, nil
}

// fetchBranch refreshes the single tracking ref of t.
func (s *Service) fetchBranch(ctx context.Context, t target, progress backend.ProgressFunc) (bool, error) {
	spec := fmt.Sprintf("+refs/heads/%s:%s", t.remoteBranch, t.trackingRef())
	return s.store.Fetch(ctx, t.remote, []string{spec}, progress)
}
