package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want gitVersion
		ok   bool
	}{
		{in: ""},
		{in: "git version 2.44.0\n", want: gitVersion{2, 44, 0}, ok: true},
		{in: "git version 2.39.3 (Apple Git-146)\n", want: gitVersion{2, 39, 3}, ok: true},
		{in: "git version 2.39.3.windows.1\n", want: gitVersion{2, 39, 3}, ok: true},
		{in: "git version 2.42\n", want: gitVersion{2, 42, 0}, ok: true},
		{in: "git version unknown\n"},
	}
	for _, tt := range tests {
		got, ok := parseGitVersion(tt.in)
		require.Equal(t, tt.ok, ok, "%q", tt.in)
		assert.Equal(t, tt.want, got, "%q", tt.in)
	}
}

func TestCheckGitVersion(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkGitVersion("git version 2.23.0"))
	require.NoError(t, checkGitVersion("git version 3.0.0"))

	err := checkGitVersion("git version 2.22.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need 2.23.0 or newer")

	assert.Error(t, checkGitVersion("garbage"))
}
