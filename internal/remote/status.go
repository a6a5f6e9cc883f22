package remote

import (
	"context"
	"errors"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// RemoteStatus compares the current branch with its remote-tracking ref as of
// the last fetch. Nothing is fetched.
type RemoteStatus struct {
	HasRemote  bool   `json:"has_remote"`
	RemoteName string `json:"remote_name"`
	RemoteURL  string `json:"remote_url"`
	Branch     string `json:"branch"`
	Upstream   string `json:"upstream"`
	Ahead      int    `json:"ahead"`
	Behind     int    `json:"behind"`
	UpToDate   bool   `json:"up_to_date"`
}

func (s *Service) Status(ctx context.Context, remote string) (RemoteStatus, error) {
	var st RemoteStatus
	head, err := s.store.Head()
	if err != nil {
		return st, err
	}
	st.Branch = head.Branch
	if head.Unborn || head.Detached {
		return st, nil
	}
	t, err := s.resolveTarget(head.Branch, remote)
	if errors.Is(err, grafterrors.ErrReferenceNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	info, err := s.store.Remote(t.remote)
	if err != nil {
		return st, err
	}
	st.HasRemote = true
	st.RemoteName = info.Name
	st.RemoteURL = info.URL

	tip, ok, err := s.store.RefHash(t.trackingRef())
	if err != nil || !ok {
		return st, err
	}
	st.Upstream = t.display()
	st.Ahead, st.Behind, err = s.store.AheadBehind(ctx, head.Hash, tip)
	if err != nil {
		return st, err
	}
	st.UpToDate = st.Ahead == 0 && st.Behind == 0
	return st, nil
}
