package conflict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dancode-188/graft/internal/git/backend"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry backend.IndexConflict
		want  Kind
	}{
		{"both sides", backend.IndexConflict{Ancestor: true, Ours: true, Theirs: true}, KindContent},
		{"both sides added", backend.IndexConflict{Ours: true, Theirs: true}, KindContent},
		{"local only", backend.IndexConflict{Ancestor: true, Ours: true}, KindDeleteModify},
		{"remote only", backend.IndexConflict{Ancestor: true, Theirs: true}, KindModifyDelete},
		{"ancestor only", backend.IndexConflict{Ancestor: true}, KindUnknown},
		{"nothing", backend.IndexConflict{}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.entry))
		})
	}
}

type fakeIndex struct {
	entries []backend.IndexConflict
	err     error
}

func (f fakeIndex) IndexConflicts() ([]backend.IndexConflict, error) {
	return f.entries, f.err
}

func TestCollect(t *testing.T) {
	t.Parallel()

	got, err := Collect(fakeIndex{entries: []backend.IndexConflict{
		{Path: "a.txt", Ancestor: true, Ours: true, Theirs: true},
		{Path: "b.txt", Ancestor: true, Theirs: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, []Conflict{
		{Path: "a.txt", Kind: KindContent},
		{Path: "b.txt", Kind: KindModifyDelete},
	}, got)
	assert.Equal(t, []string{"a.txt", "b.txt"}, Paths(got))

	empty, err := Collect(fakeIndex{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Collect(fakeIndex{err: errors.New("index locked")})
	assert.EqualError(t, err, "index locked")
}
