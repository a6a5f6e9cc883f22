// Package testutil builds real git repositories for tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Repo is a throwaway repository on disk. Commits get strictly increasing
// timestamps so history order is deterministic.
type Repo struct {
	t     testing.TB
	Dir   string
	clock time.Time
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// NewRepo initializes an empty repository on branch main.
func NewRepo(t testing.TB) *Repo {
	t.Helper()
	dir := t.TempDir()
	r := &Repo{t: t, Dir: dir, clock: baseTime}
	r.Git("-c", "init.defaultBranch=main", "init", "--quiet", "-b", "main", ".")
	r.configure()
	return r
}

// NewBareRemote initializes a bare repository to act as a remote.
func NewBareRemote(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	runGit(t, "", nil, "-c", "init.defaultBranch=main", "init", "--quiet", "--bare", "-b", "main", dir)
	return dir
}

// Clone clones url into a new temporary directory.
func Clone(t testing.TB, url string) *Repo {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clone")
	runGit(t, "", nil, "clone", "--quiet", url, dir)
	r := &Repo{t: t, Dir: dir, clock: baseTime.Add(24 * time.Hour)}
	r.configure()
	return r
}

func (r *Repo) configure() {
	r.Git("config", "user.name", "Test User")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "commit.gpgsign", "false")
	r.Git("config", "core.autocrlf", "false")
}

// Git runs git in the repository and fails the test on error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	return runGit(r.t, r.Dir, r.dateEnv(), args...)
}

// TryGit runs git and returns its error instead of failing.
func (r *Repo) TryGit(args ...string) (string, error) {
	r.t.Helper()
	return execGit(r.Dir, r.dateEnv(), args...)
}

func (r *Repo) dateEnv() []string {
	stamp := r.clock.Format(time.RFC3339)
	return []string{"GIT_AUTHOR_DATE=" + stamp, "GIT_COMMITTER_DATE=" + stamp}
}

// Tick advances the clock used for the next commit.
func (r *Repo) Tick() {
	r.clock = r.clock.Add(time.Minute)
}

func (r *Repo) WriteFile(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Dir, filepath.FromSlash(name))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

func (r *Repo) ReadFile(name string) string {
	r.t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(name)))
	require.NoError(r.t, err)
	return string(data)
}

func (r *Repo) RemoveFile(name string) {
	r.t.Helper()
	require.NoError(r.t, os.Remove(filepath.Join(r.Dir, filepath.FromSlash(name))))
}

// CommitFile writes, stages and commits one file and returns the new HEAD.
func (r *Repo) CommitFile(name, content, message string) string {
	r.t.Helper()
	r.WriteFile(name, content)
	r.Git("add", "--", name)
	return r.Commit(message)
}

// Commit commits whatever is staged, allowing empty commits.
func (r *Repo) Commit(message string) string {
	r.t.Helper()
	r.Tick()
	r.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return r.Head()
}

func (r *Repo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

func (r *Repo) RevParse(rev string) string {
	r.t.Helper()
	return r.Git("rev-parse", rev)
}

// Subjects lists commit subjects reachable from rev, newest first.
func (r *Repo) Subjects(rev string) []string {
	r.t.Helper()
	out := r.Git("log", "--format=%s", rev)
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// StatusPorcelain is "git status --porcelain" output, empty when clean.
func (r *Repo) StatusPorcelain() string {
	r.t.Helper()
	return r.Git("status", "--porcelain")
}

func runGit(t testing.TB, dir string, env []string, args ...string) string {
	t.Helper()
	out, err := execGit(dir, env, args...)
	require.NoError(t, err)
	return out
}

func execGit(dir string, env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1", "LC_ALL=C")
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return strings.TrimSpace(stdout.String()), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// BareRef resolves rev inside the bare repository at dir.
func BareRef(t testing.TB, dir, rev string) string {
	t.Helper()
	return runGit(t, dir, nil, "rev-parse", rev)
}
