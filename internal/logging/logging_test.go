package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewJSONCarriesComponentAndOperation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Format: "json", Stderr: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("shown", slog.Int("n", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "graft", rec["component"])
	assert.EqualValues(t, 3, rec["n"])
	_, err = uuid.Parse(rec["op"].(string))
	assert.NoError(t, err)
}

func TestNewFansOutToFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "graft.log")
	logger, closer, err := New(Options{Level: "warn", File: path, Stderr: &buf})
	require.NoError(t, err)

	logger.With(slog.String("repo", "x")).Warn("careful")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "careful")
	assert.Contains(t, string(data), "repo=x")
	assert.Contains(t, buf.String(), "careful")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}
