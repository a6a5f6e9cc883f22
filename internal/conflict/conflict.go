// Package conflict classifies unmerged index entries. Merge, rebase, pull and
// stash apply all report conflicts through Collect so the result looks the
// same whichever operation produced it.
package conflict

import "github.com/Dancode-188/graft/internal/git/backend"

type Kind string

const (
	KindContent      Kind = "content"
	KindDeleteModify Kind = "delete/modify"
	KindModifyDelete Kind = "modify/delete"
	KindUnknown      Kind = "unknown"
)

// Conflict is one unresolved path.
type Conflict struct {
	Path string `json:"path"`
	Kind Kind   `json:"conflict_type"`
}

// presence encodes which of the two competing sides have a version.
type presence uint8

const (
	neitherSide presence = iota
	localOnly
	remoteOnly
	bothSides
)

var kindByPresence = [...]Kind{
	neitherSide: KindUnknown,
	localOnly:   KindDeleteModify,
	remoteOnly:  KindModifyDelete,
	bothSides:   KindContent,
}

func presenceOf(local, remote bool) presence {
	var p presence
	if local {
		p |= localOnly
	}
	if remote {
		p |= remoteOnly
	}
	return p
}

// Classify maps the stages present for a path to a conflict kind. The common
// ancestor does not take part.
func Classify(c backend.IndexConflict) Kind {
	return kindByPresence[presenceOf(c.Ours, c.Theirs)]
}

// IndexReader is the part of the store Collect needs.
type IndexReader interface {
	IndexConflicts() ([]backend.IndexConflict, error)
}

// Collect recomputes the conflict set from the current index.
func Collect(idx IndexReader) ([]Conflict, error) {
	entries, err := idx.IndexConflicts()
	if err != nil {
		return nil, err
	}
	out := make([]Conflict, 0, len(entries))
	for _, e := range entries {
		out = append(out, Conflict{Path: e.Path, Kind: Classify(e)})
	}
	return out, nil
}

// Paths lists the conflicted paths in order.
func Paths(conflicts []Conflict) []string {
	paths := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		paths = append(paths, c.Path)
	}
	return paths
}
