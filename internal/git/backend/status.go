package backend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// Status runs "git status --porcelain=v2 -z" and parses it per file.
func (r *Repo) Status(ctx context.Context) (WorkingStatus, error) {
	out, err := r.git(ctx, "status", "--porcelain=v2", "-z", "--untracked-files=all")
	if err != nil {
		return WorkingStatus{}, err
	}
	status, err := parseStatusPorcelainV2(out)
	if err != nil {
		return WorkingStatus{}, fmt.Errorf("parse git status: %w", err)
	}
	return status, nil
}

func parseStatusPorcelainV2(out string) (WorkingStatus, error) {
	var res WorkingStatus
	records := strings.Split(out, "\x00")
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 2 {
			continue
		}
		switch rec[0] {
		case '1', '2':
			want := 9
			if rec[0] == '2' {
				want = 10
			}
			fields := strings.SplitN(rec, " ", want)
			if len(fields) < want || len(fields[1]) != 2 {
				return res, fmt.Errorf("malformed status record %q", rec)
			}
			path := fields[want-1]
			orig := ""
			if rec[0] == '2' {
				if i+1 >= len(records) {
					return res, fmt.Errorf("rename record without source path: %q", rec)
				}
				i++
				orig = records[i]
			}
			x, y := fields[1][0], fields[1][1]
			if x != '.' {
				res.HasStaged = true
				res.Files = append(res.Files, WorkingFile{Path: path, OrigPath: orig, Status: statusName(x), IsStaged: true})
			}
			if y != '.' {
				res.HasWorktree = true
				res.Files = append(res.Files, WorkingFile{Path: path, Status: statusName(y)})
			}
		case 'u':
			fields := strings.SplitN(rec, " ", 11)
			if len(fields) < 11 {
				return res, fmt.Errorf("malformed unmerged record %q", rec)
			}
			res.Unmerged = append(res.Unmerged, fields[10])
			res.Files = append(res.Files, WorkingFile{Path: fields[10], Status: "conflicted"})
		case '?':
			res.HasUntracked = true
			res.Files = append(res.Files, WorkingFile{Path: rec[2:], Status: "untracked"})
		default:
			// '!' ignored and '#' headers
		}
	}
	return res, nil
}

func statusName(code byte) string {
	switch code {
	case 'M':
		return "modified"
	case 'A':
		return "added"
	case 'D':
		return "deleted"
	case 'R':
		return "renamed"
	case 'C':
		return "copied"
	case 'T':
		return "type_change"
	default:
		return "unknown"
	}
}

// stageResolved is the stage of an ordinary index entry. go-git's
// index.Merged is 1, the ancestor stage, so it cannot be used here.
const stageResolved index.Stage = 0

// IndexConflicts reads the unmerged stages of the index, one entry per path
// sorted by path.
func (r *Repo) IndexConflicts() ([]IndexConflict, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var order []string
	byPath := map[string]*IndexConflict{}
	for _, e := range idx.Entries {
		if e.Stage == stageResolved {
			continue
		}
		c, ok := byPath[e.Name]
		if !ok {
			c = &IndexConflict{Path: e.Name}
			byPath[e.Name] = c
			order = append(order, e.Name)
		}
		switch e.Stage {
		case index.AncestorMode:
			c.Ancestor = true
		case index.OurMode:
			c.Ours = true
		case index.TheirMode:
			c.Theirs = true
		}
	}
	out := make([]IndexConflict, 0, len(order))
	for _, p := range order {
		out = append(out, *byPath[p])
	}
	slices.SortStableFunc(out, func(a, b IndexConflict) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}
