package highlight

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const sample = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,3 @@
 package main
-func old() {}
+func main() {}
diff --git a/notes.unknownext b/notes.unknownext
deleted file mode 100644
--- a/notes.unknownext
+++ /dev/null
@@ -1 +0,0 @@
-plain text
`

func TestDiffKeepsTextIntact(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, New("", "").Diff(&sb, sample))
	out := sb.String()
	assert.NotEqual(t, sample, out)
	assert.Equal(t, sample, ansi.ReplaceAllString(out, ""))
}

func TestDiffColoursCodeLines(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, New("monokai", "terminal16m").Diff(&sb, sample))
	lines := strings.Split(sb.String(), "\n")
	require.Greater(t, len(lines), 7)
	assert.True(t, strings.HasPrefix(lines[5], " "))
	assert.Contains(t, lines[6], ansiRed+"-"+ansiReset)
	assert.Contains(t, lines[7], ansiGreen+"+"+ansiReset)
	// keywords get a colour of their own beyond the marker
	assert.Greater(t, len(ansi.FindAllString(lines[7], -1)), 2)
}

func TestStripSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x/y.go", stripSide("a/x/y.go"))
	assert.Equal(t, "x/y.go", stripSide("b/x/y.go"))
	assert.Equal(t, "/dev/null", stripSide("/dev/null"))
	assert.Nil(t, lexerFor("/dev/null"))
	assert.NotNil(t, lexerFor("main.go"))
}
