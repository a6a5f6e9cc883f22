package git

import (
	"context"
	"log/slog"
	"strings"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

// CommitQuery selects the history to list. Refs defaults to HEAD; All starts
// from every branch, remote-tracking branch and tag instead.
type CommitQuery struct {
	Limit int
	Refs  []string
	All   bool
}

type CommitInfo struct {
	Hash         string   `json:"hash"`
	ShortHash    string   `json:"short_hash"`
	Message      string   `json:"message"`
	Summary      string   `json:"summary"`
	AuthorName   string   `json:"author_name"`
	AuthorEmail  string   `json:"author_email"`
	Timestamp    int64    `json:"timestamp"`
	ParentHashes []string `json:"parent_hashes"`
	Branches     []string `json:"branches"`
	Tags         []string `json:"tags"`
	Graph        string   `json:"graph"`

	searchText string
}

// decorations maps commit hashes to the branch and tag names pointing at them.
type decorations struct {
	branches map[string][]string
	tags     map[string][]string
}

func buildDecorations(refs []backend.Ref) decorations {
	d := decorations{branches: map[string][]string{}, tags: map[string][]string{}}
	for _, ref := range refs {
		switch ref.Kind {
		case backend.RefKindBranch, backend.RefKindRemoteBranch:
			d.branches[ref.Hash] = append(d.branches[ref.Hash], ref.Name)
		case backend.RefKindTag:
			d.tags[ref.Hash] = append(d.tags[ref.Hash], ref.Name)
		}
	}
	return d
}

// Commits lists history newest first, decorated with the refs pointing at
// each commit. An unborn HEAD yields an empty list.
func (s *Service) Commits(ctx context.Context, q CommitQuery) ([]CommitInfo, error) {
	if q.Limit < 0 {
		return nil, grafterrors.NewInputError("limit must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	refs, err := s.store.ListRefs()
	if err != nil {
		return nil, err
	}
	starts, err := s.startPoints(q, refs)
	if err != nil {
		return nil, err
	}
	if len(starts) == 0 {
		return []CommitInfo{}, nil
	}
	commits, err := s.store.Walk(ctx, starts, q.Limit)
	if err != nil {
		return nil, err
	}
	deco := buildDecorations(refs)
	graph := newGraphBuilder()
	out := make([]CommitInfo, 0, len(commits))
	for _, c := range commits {
		info := newCommitInfo(c)
		info.Branches = nonNil(deco.branches[c.Hash])
		info.Tags = nonNil(deco.tags[c.Hash])
		info.Graph = graph.Line(c)
		out = append(out, info)
	}
	slog.Debug("commits listed", slog.Int("count", len(out)), slog.Int("limit", q.Limit))
	return out, nil
}

func (s *Service) startPoints(q CommitQuery, refs []backend.Ref) ([]string, error) {
	if q.All {
		starts := make([]string, 0, len(refs)+1)
		for _, ref := range refs {
			starts = append(starts, ref.Hash)
		}
		head, err := s.store.Head()
		if err != nil {
			return nil, err
		}
		if !head.Unborn {
			starts = append(starts, head.Hash)
		}
		return starts, nil
	}
	if len(q.Refs) > 0 {
		return q.Refs, nil
	}
	head, err := s.store.Head()
	if err != nil {
		return nil, err
	}
	if head.Unborn {
		return nil, nil
	}
	return []string{head.Hash}, nil
}

// Search lists commits reachable from HEAD whose hash, author or message
// contains query, ignoring case.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]CommitInfo, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, grafterrors.NewInputError("search query is empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	head, err := s.store.Head()
	if err != nil {
		return nil, err
	}
	if head.Unborn {
		return []CommitInfo{}, nil
	}
	commits, err := s.store.Walk(ctx, []string{head.Hash}, 0)
	if err != nil {
		return nil, err
	}
	matches := []CommitInfo{}
	for _, c := range commits {
		info := newCommitInfo(c)
		if !info.matches(query) {
			continue
		}
		matches = append(matches, info)
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func newCommitInfo(c *backend.Commit) CommitInfo {
	message := strings.TrimSpace(c.Message)
	if message == "" {
		message = "(no message)"
	}
	author := strings.TrimSpace(c.Author.Name)
	if author == "" {
		author = "Unknown"
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(c.Hash))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(c.Author.Name))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(c.Author.Email))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(c.Message))
	return CommitInfo{
		Hash:         c.Hash,
		ShortHash:    shortHash(c.Hash),
		Message:      message,
		Summary:      formatSummary(message),
		AuthorName:   author,
		AuthorEmail:  c.Author.Email,
		Timestamp:    c.Author.When.Unix(),
		ParentHashes: nonNil(c.ParentHashes),
		Branches:     []string{},
		Tags:         []string{},
		searchText:   b.String(),
	}
}

func (c CommitInfo) matches(lowerQuery string) bool {
	return strings.Contains(c.searchText, lowerQuery)
}

func formatSummary(message string) string {
	firstLine, _, _ := strings.Cut(message, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > 80 {
		firstLine = firstLine[:77] + "..."
	}
	return firstLine
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
