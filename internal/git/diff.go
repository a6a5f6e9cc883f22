package git

import (
	"context"
	"fmt"
	"strings"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

// FileSection marks the line where a file's patch begins in a rendered diff.
type FileSection struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

type CommitDiff struct {
	Hash     string        `json:"hash"`
	Text     string        `json:"text"`
	Sections []FileSection `json:"sections"`
}

// CommitFiles lists the paths a commit changed against its first parent.
func (s *Service) CommitFiles(ctx context.Context, hash string) ([]backend.FileChange, error) {
	resolved, err := s.store.ResolveCommit(hash)
	if err != nil {
		return nil, err
	}
	changes, err := s.store.CommitChanges(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []backend.FileChange{}
	}
	return changes, nil
}

// Diff renders a commit header followed by its patch. A non-empty file limits
// the patch to that path.
func (s *Service) Diff(ctx context.Context, hash, file string) (CommitDiff, error) {
	resolved, err := s.store.ResolveCommit(hash)
	if err != nil {
		return CommitDiff{}, err
	}
	commit, err := s.store.ReadCommit(resolved)
	if err != nil {
		return CommitDiff{}, err
	}
	patch, err := s.store.CommitPatch(ctx, resolved, strings.TrimSpace(file))
	if err != nil {
		return CommitDiff{}, err
	}
	header := FormatCommitHeader(commit)
	headerLines := strings.Count(header, "\n")
	return CommitDiff{
		Hash:     resolved,
		Text:     header + "\n" + patch,
		Sections: parseDiffSections(patch, headerLines+1),
	}, nil
}

// FileDiff renders the staged (HEAD to index) or unstaged (index to disk)
// diff of one path.
func (s *Service) FileDiff(file string, staged bool) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", grafterrors.NewInputError("file path is empty")
	}
	return s.store.FileDiff(file, staged)
}

// FormatCommitHeader renders a commit the way `git show` does above the patch.
func FormatCommitHeader(c *backend.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", c.Hash)
	if len(c.ParentHashes) > 1 {
		shorts := make([]string, 0, len(c.ParentHashes))
		for _, p := range c.ParentHashes {
			shorts = append(shorts, shortHash(p))
		}
		fmt.Fprintf(&b, "Merge: %s\n", strings.Join(shorts, " "))
	}
	appendSignatureLine(&b, "Author", c.Author)
	committer := c.Committer
	if committer.Name == "" && committer.Email == "" && committer.When.IsZero() {
		committer = c.Author
	}
	appendSignatureLine(&b, "Committer", committer)
	b.WriteString("\n")
	message := strings.TrimRight(c.Message, "\n")
	if message == "" {
		b.WriteString("    (no commit message)\n")
		return b.String()
	}
	for line := range strings.SplitSeq(message, "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}

func appendSignatureLine(b *strings.Builder, label string, sig backend.Signature) {
	name := strings.TrimSpace(sig.Name)
	if name == "" {
		name = "Unknown"
	}
	fmt.Fprintf(b, "%s: %s <%s>", label, name, sig.Email)
	if !sig.When.IsZero() {
		fmt.Fprintf(b, "  %s", sig.When.Format("2006-01-02 15:04:05 -0700"))
	}
	b.WriteString("\n")
}
