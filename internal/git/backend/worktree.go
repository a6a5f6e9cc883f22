package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

// Stage adds paths to the index, recording deletions and marking conflicted
// paths as resolved.
func (r *Repo) Stage(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return grafterrors.NewInputError("no files given")
	}
	_, err := r.git(ctx, append([]string{"add", "-A", "--"}, paths...)...)
	return err
}

// Unstage resets index entries for paths back to HEAD.
func (r *Repo) Unstage(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return grafterrors.NewInputError("no files given")
	}
	head, err := r.Head()
	if err != nil {
		return err
	}
	if head.Unborn {
		_, err := r.git(ctx, append([]string{"rm", "--cached", "-r", "-q", "--ignore-unmatch", "--"}, paths...)...)
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Restore(&gitlib.RestoreOptions{Staged: true, Files: paths}); err != nil {
		return fmt.Errorf("unstage: %w", err)
	}
	return nil
}

// Discard throws away worktree changes: tracked paths are restored from the
// index and untracked paths are deleted.
func (r *Repo) Discard(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return grafterrors.NewInputError("no files given")
	}
	status, err := r.Status(ctx)
	if err != nil {
		return err
	}
	untracked := map[string]bool{}
	for _, f := range status.Files {
		if f.Status == "untracked" {
			untracked[f.Path] = true
		}
	}
	var tracked []string
	for _, p := range paths {
		if untracked[p] {
			if err := os.Remove(filepath.Join(r.path, p)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", p, err)
			}
			continue
		}
		tracked = append(tracked, p)
	}
	if len(tracked) == 0 {
		return nil
	}
	_, err = r.git(ctx, append([]string{"restore", "--worktree", "--"}, tracked...)...)
	return err
}

// CommitOptions controls a commit made through the git executable so that
// hooks, signing and identity config behave as they do on the command line.
type CommitOptions struct {
	Message    string
	Amend      bool
	AllowEmpty bool
	NoVerify   bool
	// Author overrides the author identity and date. The committer is
	// always the configured user.
	Author *Signature
}

func (r *Repo) Commit(ctx context.Context, opts CommitOptions) (string, error) {
	args := []string{"commit", "--quiet", "--cleanup=strip", "-F", "-"}
	if opts.Amend {
		args = append(args, "--amend")
	}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	if opts.NoVerify {
		args = append(args, "--no-verify")
	}
	if a := opts.Author; a != nil {
		args = append(args, fmt.Sprintf("--author=%s <%s>", a.Name, a.Email))
		if !a.When.IsZero() {
			args = append(args, "--date="+a.When.Format(time.RFC3339))
		}
	}
	msg := opts.Message
	if strings.TrimSpace(msg) == "" {
		return "", grafterrors.NewInputError("commit message is empty")
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !opts.Amend && !opts.AllowEmpty {
		if err := r.requireStaged(ctx); err != nil {
			return "", err
		}
	}
	if _, err := r.runGit(ctx, gitCall{args: args, input: msg}); err != nil {
		return "", err
	}
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	return head.Hash, nil
}

// requireStaged fails with ErrNothingToCommit when the index matches HEAD.
// An open merge may be concluded without new staged changes.
func (r *Repo) requireStaged(ctx context.Context) error {
	state, err := r.State()
	if err != nil {
		return err
	}
	if state == StateMerge {
		return nil
	}
	st, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if !st.HasStaged {
		return grafterrors.ErrNothingToCommit
	}
	return nil
}

// FileDiff renders a unified diff for one path. Staged compares HEAD with
// the index; otherwise the index is compared with the file on disk.
func (r *Repo) FileDiff(path string, staged bool) (string, error) {
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return "", grafterrors.NewInputError("file path is empty")
	}
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return "", err
	}
	var from, to *object.File
	if staged {
		tree, err := r.headTree()
		if err != nil {
			return "", err
		}
		if from, err = fileFromTree(tree, path); err != nil {
			return "", err
		}
		if to, err = r.fileFromIndex(idx, path); err != nil {
			return "", err
		}
	} else {
		if from, err = r.fileFromIndex(idx, path); err != nil {
			return "", err
		}
		if to, err = fileFromDisk(r.path, path); err != nil {
			return "", err
		}
	}
	return renderFileDiff(path, from, to)
}

func (r *Repo) headTree() (*object.Tree, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	if head.Unborn {
		return nil, nil
	}
	c, err := r.repo.CommitObject(plumbing.NewHash(head.Hash))
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

func fileFromTree(tree *object.Tree, path string) (*object.File, error) {
	if tree == nil {
		return nil, nil
	}
	f, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	return f, err
}

func (r *Repo) fileFromIndex(idx *gitindex.Index, path string) (*object.File, error) {
	entry, err := idx.Entry(path)
	if errors.Is(err, gitindex.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(r.repo.Storer, entry.Hash)
	if err != nil {
		return nil, err
	}
	return object.NewFile(entry.Name, entry.Mode, blob), nil
}

func fileFromDisk(root, path string) (*object.File, error) {
	file, err := os.Open(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	mem := &plumbing.MemoryObject{}
	mem.SetType(plumbing.BlobObject)
	if _, err := mem.Write(data); err != nil {
		return nil, err
	}
	blob, err := object.DecodeBlob(mem)
	if err != nil {
		return nil, err
	}
	mode := filemode.Regular
	if info, err := file.Stat(); err == nil {
		if m, err := filemode.NewFromOSFileMode(info.Mode()); err == nil {
			mode = m
		}
	}
	return object.NewFile(path, mode, blob), nil
}

func renderFileDiff(path string, from, to *object.File) (string, error) {
	if from == nil && to == nil {
		return "", nil
	}
	header := fmt.Sprintf("diff --git a/%s b/%s\n", path, path)
	for _, f := range []*object.File{from, to} {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			return "", err
		}
		if bin {
			return header + "Binary files differ\n", nil
		}
	}
	fromLines, err := fileLines(from)
	if err != nil {
		return "", err
	}
	toLines, err := fileLines(to)
	if err != nil {
		return "", err
	}
	fromName, toName := "a/"+path, "b/"+path
	if from == nil {
		fromName = "/dev/null"
	}
	if to == nil {
		toName = "/dev/null"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return header + text, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return []string{}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return difflib.SplitLines(content), nil
}
