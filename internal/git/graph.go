package git

import (
	"strings"

	"github.com/Dancode-188/graft/internal/git/backend"
)

// graphBuilder lays commits out in lanes, one column per line of descent
// still waiting for its next commit. Feed it commits newest first.
type graphBuilder struct {
	columns []string
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{}
}

// Line renders the lane row for c and advances the lanes to its parents.
func (g *graphBuilder) Line(c *backend.Commit) string {
	if c == nil {
		return ""
	}
	idx := g.columnIndex(c.Hash)
	if idx == -1 {
		g.columns = append([]string{c.Hash}, g.columns...)
		idx = 0
	}
	var b strings.Builder
	for i := range g.columns {
		if i == idx {
			b.WriteString("*")
		} else {
			b.WriteString("|")
		}
		if i != len(g.columns)-1 {
			b.WriteString(" ")
		}
	}
	g.advance(idx, c.ParentHashes)
	return b.String()
}

func (g *graphBuilder) columnIndex(hash string) int {
	for i, h := range g.columns {
		if h == hash {
			return i
		}
	}
	return -1
}

func (g *graphBuilder) advance(idx int, parents []string) {
	if len(parents) == 0 {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		return
	}
	primary := parents[0]
	// A lane already waiting for the first parent absorbs this one.
	if existing := g.columnIndex(primary); existing != -1 && existing != idx {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		if existing > idx {
			existing--
		}
		idx = existing
	} else {
		g.columns[idx] = primary
	}
	for i := 1; i < len(parents); i++ {
		parent := parents[i]
		if g.columnIndex(parent) != -1 {
			continue
		}
		pos := min(idx+i, len(g.columns))
		g.columns = append(g.columns[:pos], append([]string{parent}, g.columns[pos:]...)...)
	}
}
