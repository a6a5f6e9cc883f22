package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bi   *debug.BuildInfo
		want Info
		str  string
	}{
		{name: "missing", want: Info{Version: "dev"}, str: "dev"},
		{
			name: "devel",
			bi:   &debug.BuildInfo{GoVersion: "go1.25.0", Main: debug.Module{Version: "(devel)"}},
			want: Info{Version: "dev", GoVersion: "go1.25.0"},
			str:  "dev",
		},
		{
			name: "release with vcs",
			bi: &debug.BuildInfo{
				GoVersion: "go1.25.0",
				Main:      debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.modified", Value: "true"},
					{Key: "-tags", Value: "netgo"},
				},
			},
			want: Info{Version: "v1.2.3", Revision: "0123456789abcdef0123", Modified: true, GoVersion: "go1.25.0", Tags: "netgo"},
			str:  "v1.2.3 (0123456789ab-dirty) (tags: netgo)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fromBuildInfo(tt.bi)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}
