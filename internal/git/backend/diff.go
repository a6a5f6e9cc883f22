package backend

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	diff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// DiffCommits compares the trees of two commits. An empty from compares
// against the empty tree. Rename detection is on.
func (r *Repo) DiffCommits(ctx context.Context, from, to string) ([]FileChange, error) {
	changes, err := r.treeChanges(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]FileChange, 0, len(changes))
	for _, ch := range changes {
		fc, err := fileChange(ctx, ch)
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, nil
}

// CommitChanges diffs a commit against its first parent.
func (r *Repo) CommitChanges(ctx context.Context, hash string) ([]FileChange, error) {
	c, err := r.commitObject(hash)
	if err != nil {
		return nil, err
	}
	parent := ""
	if len(c.ParentHashes) > 0 {
		parent = c.ParentHashes[0].String()
	}
	return r.DiffCommits(ctx, parent, c.Hash.String())
}

// CommitPatch renders the unified patch of a commit against its first
// parent, restricted to path when it is not empty.
func (r *Repo) CommitPatch(ctx context.Context, hash, path string) (string, error) {
	c, err := r.commitObject(hash)
	if err != nil {
		return "", err
	}
	parent := ""
	if len(c.ParentHashes) > 0 {
		parent = c.ParentHashes[0].String()
	}
	return r.Patch(ctx, parent, c.Hash.String(), path)
}

// Patch renders the unified patch between two commits.
func (r *Repo) Patch(ctx context.Context, from, to, path string) (string, error) {
	changes, err := r.treeChanges(ctx, from, to)
	if err != nil {
		return "", err
	}
	if path != "" {
		var filtered object.Changes
		for _, ch := range changes {
			if ch.From.Name == path || ch.To.Name == path {
				filtered = append(filtered, ch)
			}
		}
		changes = filtered
	}
	if len(changes) == 0 {
		return "", nil
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", fmt.Errorf("compute patch: %w", err)
	}
	return encodeUnifiedPatch(patch.FilePatches())
}

func (r *Repo) treeChanges(ctx context.Context, from, to string) (object.Changes, error) {
	toCommit, err := r.commitObject(to)
	if err != nil {
		return nil, err
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, err
	}
	var fromTree *object.Tree
	if from != "" {
		fromCommit, err := r.commitObject(from)
		if err != nil {
			return nil, err
		}
		if fromTree, err = fromCommit.Tree(); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	return changes, nil
}

func fileChange(ctx context.Context, ch *object.Change) (FileChange, error) {
	action, err := ch.Action()
	if err != nil {
		return FileChange{}, err
	}
	fc := FileChange{Path: ch.To.Name}
	switch action {
	case merkletrie.Insert:
		fc.Status = ChangeAdded
	case merkletrie.Delete:
		fc.Path = ch.From.Name
		fc.Status = ChangeDeleted
	default:
		fc.Status = ChangeModified
		if ch.From.Name != ch.To.Name {
			fc.Status = ChangeRenamed
			fc.OldPath = ch.From.Name
		} else if isTypeChange(ch.From.TreeEntry.Mode, ch.To.TreeEntry.Mode) {
			fc.Status = ChangeTypeChange
		}
	}
	patch, err := ch.PatchContext(ctx)
	if err != nil {
		return FileChange{}, fmt.Errorf("patch %s: %w", fc.Path, err)
	}
	for _, st := range patch.Stats() {
		fc.Insertions += st.Addition
		fc.Deletions += st.Deletion
	}
	return fc, nil
}

func isTypeChange(from, to filemode.FileMode) bool {
	kind := func(m filemode.FileMode) int {
		switch m {
		case filemode.Symlink:
			return 1
		case filemode.Submodule:
			return 2
		default:
			return 0
		}
	}
	return kind(from) != kind(to)
}

func encodeUnifiedPatch(filePatches []diff.FilePatch) (string, error) {
	var buf bytes.Buffer
	enc := diff.NewUnifiedEncoder(&buf, diff.DefaultContextLines)
	if err := enc.Encode(filePatchSet{patches: filePatches}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type filePatchSet struct {
	patches []diff.FilePatch
}

func (f filePatchSet) FilePatches() []diff.FilePatch { return f.patches }
func (filePatchSet) Message() string                 { return "" }
