package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// DefaultCommandTimeout bounds a single git invocation when the caller's
// context carries no deadline.
const DefaultCommandTimeout = 2 * time.Minute

type gitCall struct {
	args []string
	// allowExit1 treats exit status 1 as success. git diff, merge and
	// cherry-pick use it to signal changes or conflicts.
	allowExit1 bool
	input      string
	env        []string
}

type gitResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	res, err := r.runGit(ctx, gitCall{args: args})
	if err != nil {
		return "", err
	}
	return res.stdout, nil
}

func (r *Repo) runGit(ctx context.Context, call gitCall) (gitResult, error) {
	if r == nil || r.path == "" {
		return gitResult{}, errors.New("repository root not set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		timeout := r.timeout
		if timeout <= 0 {
			timeout = DefaultCommandTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmdArgs := append([]string{"-C", r.path}, call.args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	// Keep output stable regardless of the user's locale and pager.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0", "GIT_EDITOR=true")
	cmd.Env = append(cmd.Env, call.env...)
	if call.input != "" {
		cmd.Stdin = strings.NewReader(call.input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := gitResult{stdout: stdout.String(), stderr: strings.TrimSpace(stderr.String())}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		if call.allowExit1 && res.exitCode == 1 {
			return res, nil
		}
	}
	if ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	return res, &grafterrors.GitCommandError{
		Args:     call.args,
		Stdout:   strings.TrimSpace(res.stdout),
		Stderr:   res.stderr,
		ExitCode: res.exitCode,
		Err:      err,
	}
}
