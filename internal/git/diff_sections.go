package git

import (
	"strconv"
	"strings"
)

const diffHeader = "diff --git "

// parseDiffSections finds the first line of each file's patch. Line numbers
// are 1-based and shifted by lineOffset.
func parseDiffSections(diffText string, lineOffset int) []FileSection {
	sections := []FileSection{}
	n := lineOffset
	for line := range strings.Lines(diffText) {
		n++
		rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), diffHeader)
		if !ok {
			continue
		}
		if path := headerPath(rest); path != "" {
			sections = append(sections, FileSection{Path: path, Line: n})
		}
	}
	return sections
}

// headerPath returns the new-side path of a "diff --git a/x b/x" header.
// Paths with unusual characters arrive C-quoted.
func headerPath(header string) string {
	header = strings.TrimSpace(header)
	var newSide string
	if strings.HasSuffix(header, `"`) {
		start := strings.LastIndex(header[:len(header)-1], ` "`)
		if start < 0 {
			return ""
		}
		unquoted, err := strconv.Unquote(header[start+1:])
		if err != nil {
			return ""
		}
		newSide = unquoted
	} else {
		// Old and new paths are identical unless the diff is a rename, in
		// which case the new path still follows the last " b/".
		idx := strings.LastIndex(header, " b/")
		if idx < 0 {
			return ""
		}
		newSide = header[idx+1:]
	}
	return stripSidePrefix(newSide)
}

func stripSidePrefix(token string) string {
	if rest, ok := strings.CutPrefix(token, "b/"); ok {
		return rest
	}
	return strings.TrimPrefix(token, "a/")
}
