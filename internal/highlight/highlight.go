// Package highlight colours unified diffs for terminals, using the lexer
// that matches each file's name for the code on changed and context lines.
package highlight

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	DefaultStyle     = "github-dark"
	DefaultFormatter = "terminal256"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiCyan   = "\x1b[36m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// New looks up a chroma style and terminal formatter by name. Empty names
// select the defaults; unknown names fall back to chroma's fallbacks.
func New(style, formatter string) *Highlighter {
	if style == "" {
		style = DefaultStyle
	}
	if formatter == "" {
		formatter = DefaultFormatter
	}
	return &Highlighter{style: styles.Get(style), formatter: formatters.Get(formatter)}
}

// Diff writes diff to w with ANSI colours.
func (h *Highlighter) Diff(w io.Writer, diff string) error {
	bw := bufio.NewWriter(w)
	var lexer chroma.Lexer
	oldPath := ""
	for line := range strings.Lines(diff) {
		line = strings.TrimSuffix(line, "\n")
		var err error
		switch {
		case strings.HasPrefix(line, "diff --git "):
			lexer, oldPath = nil, ""
			err = paint(bw, ansiBold, line)
		case strings.HasPrefix(line, "--- "):
			oldPath = stripSide(strings.TrimPrefix(line, "--- "))
			err = paint(bw, ansiBold, line)
		case strings.HasPrefix(line, "+++ "):
			path := stripSide(strings.TrimPrefix(line, "+++ "))
			if path == "/dev/null" {
				path = oldPath
			}
			lexer = lexerFor(path)
			err = paint(bw, ansiBold, line)
		case strings.HasPrefix(line, "@@"):
			err = paint(bw, ansiCyan, line)
		case strings.HasPrefix(line, "commit "):
			err = paint(bw, ansiYellow, line)
		case lexer != nil && line != "" && (line[0] == '+' || line[0] == '-' || line[0] == ' '):
			err = h.code(bw, lexer, line)
		default:
			_, err = fmt.Fprintln(bw, line)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (h *Highlighter) code(w io.Writer, lexer chroma.Lexer, line string) error {
	marker := ""
	switch line[0] {
	case '+':
		marker = ansiGreen + "+" + ansiReset
	case '-':
		marker = ansiRed + "-" + ansiReset
	default:
		marker = " "
	}
	if _, err := io.WriteString(w, marker); err != nil {
		return err
	}
	it, err := lexer.Tokenise(nil, line[1:])
	if err != nil {
		_, err = fmt.Fprintln(w, line[1:])
		return err
	}
	tokens := it.Tokens()
	// Lexers end input with a newline token; the line break is ours to write.
	if n := len(tokens); n > 0 {
		tokens[n-1].Value = strings.TrimSuffix(tokens[n-1].Value, "\n")
	}
	if err := h.formatter.Format(w, h.style, chroma.Literator(tokens...)); err != nil {
		return err
	}
	_, err = io.WriteString(w, ansiReset+"\n")
	return err
}

func paint(w io.Writer, colour, line string) error {
	_, err := fmt.Fprintf(w, "%s%s%s\n", colour, line, ansiReset)
	return err
}

func stripSide(path string) string {
	path = strings.TrimSpace(path)
	if p, ok := strings.CutPrefix(path, "a/"); ok {
		return p
	}
	if p, ok := strings.CutPrefix(path, "b/"); ok {
		return p
	}
	return path
}

func lexerFor(path string) chroma.Lexer {
	if path == "" || path == "/dev/null" {
		return nil
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}
