package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// ProgressFunc receives human-readable transfer progress, one line at a time.
type ProgressFunc func(line string)

// Credentials are used for HTTP(S) remotes. SSH remotes use the running agent.
type Credentials struct {
	Username string
	Token    string
}

func WithCredentials(c Credentials) Option {
	return func(r *Repo) {
		r.creds = c
	}
}

func (r *Repo) authFor(url string) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	switch ep.Protocol {
	case "http", "https":
		if r.creds.Token == "" {
			return nil, nil
		}
		user := r.creds.Username
		if user == "" {
			user = "git"
		}
		return &http.BasicAuth{Username: user, Password: r.creds.Token}, nil
	case "ssh":
		if os.Getenv("SSH_AUTH_SOCK") == "" {
			return nil, nil
		}
		auth, err := ssh.NewSSHAgentAuth(ep.User)
		if err != nil {
			return nil, fmt.Errorf("ssh agent: %w", err)
		}
		return auth, nil
	}
	return nil, nil
}

// Fetch downloads refSpecs from remote and updates remote-tracking refs. It
// reports whether anything changed.
func (r *Repo) Fetch(ctx context.Context, remote string, refSpecs []string, progress ProgressFunc) (bool, error) {
	info, err := r.Remote(remote)
	if err != nil {
		return false, err
	}
	auth, err := r.authFor(info.URL)
	if err != nil {
		return false, &grafterrors.TransportError{Op: "fetch", Remote: remote, Err: err}
	}
	opts := &gitlib.FetchOptions{
		RemoteName: remote,
		RefSpecs:   toRefSpecs(refSpecs),
		Auth:       auth,
	}
	if progress != nil {
		opts.Progress = newLineWriter(progress)
	}
	slog.Debug("fetch", slog.String("remote", remote), slog.Any("refspecs", refSpecs))
	err = r.repo.FetchContext(ctx, opts)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gitlib.NoErrAlreadyUpToDate):
		return false, nil
	case errors.Is(err, gitlib.NoMatchingRefSpecError{}):
		return false, &grafterrors.ReferenceNotFoundError{Name: fmt.Sprintf("%s %v", remote, refSpecs)}
	}
	return false, &grafterrors.TransportError{Op: "fetch", Remote: remote, Err: err}
}

// PushRequest pushes refs/heads/Branch to the same name on Remote.
type PushRequest struct {
	Remote string
	Branch string
	Force  bool
	// Lease turns on force-with-lease. An empty Expected uses the local
	// remote-tracking ref as the expected remote value.
	Lease    bool
	Expected string
	Progress ProgressFunc
}

// Push returns go-git's error untouched so callers can tell rejections from
// transport failures.
func (r *Repo) Push(ctx context.Context, req PushRequest) error {
	info, err := r.Remote(req.Remote)
	if err != nil {
		return err
	}
	auth, err := r.authFor(info.URL)
	if err != nil {
		return err
	}
	ref := plumbing.NewBranchReferenceName(req.Branch)
	spec := fmt.Sprintf("%s:%s", ref, ref)
	if req.Force && !req.Lease {
		spec = "+" + spec
	}
	opts := &gitlib.PushOptions{
		RemoteName: req.Remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(spec)},
		Auth:       auth,
	}
	if req.Lease {
		opts.ForceWithLease = &gitlib.ForceWithLease{RefName: ref}
		if req.Expected != "" {
			opts.ForceWithLease.Hash = plumbing.NewHash(req.Expected)
		}
	}
	if req.Progress != nil {
		opts.Progress = newLineWriter(req.Progress)
	}
	slog.Debug("push", slog.String("remote", req.Remote), slog.String("refspec", spec), slog.Bool("lease", req.Lease))
	return r.repo.PushContext(ctx, opts)
}

// RemoteBranchHash lists the remote's refs over the network and returns the
// hash of refs/heads/branch there.
func (r *Repo) RemoteBranchHash(ctx context.Context, remote, branch string) (string, bool, error) {
	rem, err := r.repo.Remote(remote)
	if err != nil || len(rem.Config().URLs) == 0 {
		return "", false, &grafterrors.ReferenceNotFoundError{Name: remote}
	}
	auth, err := r.authFor(rem.Config().URLs[0])
	if err != nil {
		return "", false, err
	}
	refs, err := rem.ListContext(ctx, &gitlib.ListOptions{Auth: auth})
	if err != nil {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return "", false, nil
		}
		return "", false, &grafterrors.TransportError{Op: "ls-remote", Remote: remote, Err: err}
	}
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash().String(), true, nil
		}
	}
	return "", false, nil
}

func toRefSpecs(specs []string) []config.RefSpec {
	out := make([]config.RefSpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, config.RefSpec(s))
	}
	return out
}

// lineWriter adapts a ProgressFunc to go-git's sideband.Progress writer.
// Carriage returns end a line, as git uses them to redraw counters.
type lineWriter struct {
	mu  sync.Mutex
	fn  ProgressFunc
	buf bytes.Buffer
}

func newLineWriter(fn ProgressFunc) *lineWriter {
	return &lineWriter{fn: fn}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.flush()
			continue
		}
		w.buf.WriteByte(b)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	w.fn(line)
}
