package backend

import (
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// gitVersion is major, minor, patch.
type gitVersion [3]int

// requiredGit is the first release with "git switch", "git restore",
// "git stash push" and "status --porcelain=v2 -z".
var requiredGit = gitVersion{2, 23, 0}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// versionRe accepts "2.44", "2.39.3 (Apple Git-146)" and "2.39.3.windows.1".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func parseGitVersion(out string) (gitVersion, bool) {
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		return gitVersion{}, false
	}
	var v gitVersion
	for i, part := range m[1:] {
		if part != "" {
			v[i], _ = strconv.Atoi(part)
		}
	}
	return v, true
}

func checkGitVersion(out string) error {
	v, ok := parseGitVersion(out)
	if !ok {
		return fmt.Errorf("unrecognised git --version output %q", strings.TrimSpace(out))
	}
	if slices.Compare(v[:], requiredGit[:]) < 0 {
		return fmt.Errorf("found git %s, need %s or newer", v, requiredGit)
	}
	return nil
}

// ensureMinGitVersion runs "git --version" once per process.
var ensureMinGitVersion = sync.OnceValue(func() error {
	out, err := exec.Command("git", "--version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("git --version: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return checkGitVersion(string(out))
})
