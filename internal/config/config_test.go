package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{EnvLogLevel, EnvLogFormat, EnvLogFile, EnvCommitLimit, EnvGitTimeout, EnvRemote, EnvGitUsername, EnvGitToken} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\ncommit_limit: 25\ngit_timeout: 30s\nremote: upstream\n"), 0o644))
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogFile, "")
	t.Setenv(EnvCommitLimit, "")
	t.Setenv(EnvGitTimeout, "")
	t.Setenv(EnvRemote, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 25, cfg.CommitLimit)
	assert.Equal(t, 30*time.Second, cfg.GitTimeout)
	assert.Equal(t, "upstream", cfg.Remote)

	t.Setenv(EnvCommitLimit, "7")
	t.Setenv(EnvGitTimeout, "5m")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.CommitLimit)
	assert.Equal(t, 5*time.Minute, cfg.GitTimeout)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{name: "limit", env: map[string]string{EnvCommitLimit: "many"}, want: ErrInvalidCommitLimit},
		{name: "timeout", env: map[string]string{EnvGitTimeout: "soon"}, want: ErrInvalidGitTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "warning alias", mutate: func(c *Config) { c.LogLevel = "WARNING" }},
		{name: "level", mutate: func(c *Config) { c.LogLevel = "loud" }, want: ErrInvalidLogLevel},
		{name: "format", mutate: func(c *Config) { c.LogFormat = "xml" }, want: ErrInvalidLogFormat},
		{name: "limit", mutate: func(c *Config) { c.CommitLimit = 0 }, want: ErrInvalidCommitLimit},
		{name: "timeout", mutate: func(c *Config) { c.GitTimeout = -time.Second }, want: ErrInvalidGitTimeout},
		{name: "remote", mutate: func(c *Config) { c.Remote = " " }, want: ErrInvalidRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
