package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type walkItem struct {
	commit *object.Commit
	seq    int
}

// byAuthorTime orders newest authorship first and falls back to the order in
// which commits were discovered.
func byAuthorTime(a, b any) int {
	x, y := a.(walkItem), b.(walkItem)
	switch {
	case x.commit.Author.When.After(y.commit.Author.When):
		return -1
	case y.commit.Author.When.After(x.commit.Author.When):
		return 1
	}
	return x.seq - y.seq
}

// Walk returns up to limit commits reachable from starts, deduplicated and
// sorted by descending authorship time. A non-positive limit means no limit.
func (r *Repo) Walk(ctx context.Context, starts []string, limit int) ([]*Commit, error) {
	queue := binaryheap.NewWith(byAuthorTime)
	seen := make(map[plumbing.Hash]struct{})
	seq := 0
	push := func(h plumbing.Hash) error {
		if _, ok := seen[h]; ok {
			return nil
		}
		seen[h] = struct{}{}
		c, err := r.repo.CommitObject(h)
		if err != nil {
			return fmt.Errorf("read commit %s: %w", h, err)
		}
		queue.Push(walkItem{commit: c, seq: seq})
		seq++
		return nil
	}
	for _, start := range starts {
		hash, err := r.ResolveCommit(start)
		if err != nil {
			return nil, err
		}
		if err := push(plumbing.NewHash(hash)); err != nil {
			return nil, err
		}
	}

	var out []*Commit
	for !queue.Empty() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, _ := queue.Pop()
		item := v.(walkItem)
		out = append(out, toCommit(item.commit))
		for _, p := range item.commit.ParentHashes {
			if err := push(p); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	a, err := r.commitObject(ancestor)
	if err != nil {
		return false, err
	}
	d, err := r.commitObject(descendant)
	if err != nil {
		return false, err
	}
	return a.IsAncestor(d)
}

// MergeBase returns the best common ancestor, or "" for unrelated histories.
func (r *Repo) MergeBase(a, b string) (string, error) {
	ca, err := r.commitObject(a)
	if err != nil {
		return "", err
	}
	cb, err := r.commitObject(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", err
	}
	if len(bases) == 0 {
		return "", nil
	}
	return bases[0].Hash.String(), nil
}

// AheadBehind counts commits reachable from local but not upstream (ahead)
// and the reverse (behind).
func (r *Repo) AheadBehind(ctx context.Context, local, upstream string) (ahead int, behind int, err error) {
	out, err := r.git(ctx, "rev-list", "--left-right", "--count", local+"..."+upstream)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(out))
	}
	if ahead, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, err
	}
	if behind, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// RangeCommits lists the commits in base..head oldest first. base must be an
// ancestor of head.
func (r *Repo) RangeCommits(ctx context.Context, base, head string) ([]*Commit, error) {
	ok, err := r.IsAncestor(base, head)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s is not an ancestor of %s", short(base), short(head))
	}
	out, err := r.git(ctx, "rev-list", "--reverse", "--topo-order", base+".."+head)
	if err != nil {
		return nil, err
	}
	var commits []*Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c, err := r.ReadCommit(line)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
