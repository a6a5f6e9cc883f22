// Package config loads graft settings from an optional YAML file and GRAFT_*
// environment variables. Command-line flags are applied on top by cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvLogLevel    = "GRAFT_LOG_LEVEL"
	EnvLogFormat   = "GRAFT_LOG_FORMAT"
	EnvLogFile     = "GRAFT_LOG_FILE"
	EnvCommitLimit = "GRAFT_COMMIT_LIMIT"
	EnvGitTimeout  = "GRAFT_GIT_TIMEOUT"
	EnvRemote      = "GRAFT_REMOTE"
	EnvGitUsername = "GRAFT_GIT_USERNAME"
	EnvGitToken    = "GRAFT_GIT_TOKEN"
)

const (
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultCommitLimit = 100
	DefaultGitTimeout  = 2 * time.Minute
	DefaultRemote      = "origin"
)

var (
	ErrInvalidLogLevel    = errors.New("log_level must be one of debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("log_format must be text or json")
	ErrInvalidCommitLimit = errors.New("commit_limit must be positive")
	ErrInvalidGitTimeout  = errors.New("git_timeout must be positive")
	ErrInvalidRemote      = errors.New("remote must not be empty")
)

type Config struct {
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	LogFile     string        `yaml:"log_file"`
	CommitLimit int           `yaml:"commit_limit"`
	GitTimeout  time.Duration `yaml:"git_timeout"`
	Remote      string        `yaml:"remote"`
	GitUsername string        `yaml:"git_username"`
	GitToken    string        `yaml:"git_token"`
}

func Default() Config {
	return Config{
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		CommitLimit: DefaultCommitLimit,
		GitTimeout:  DefaultGitTimeout,
		Remote:      DefaultRemote,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/graft/config.yaml, or the same under
// ~/.config. It returns "" when neither can be determined.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "graft", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "graft", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)
	str(EnvLogFile, &c.LogFile)
	str(EnvRemote, &c.Remote)
	str(EnvGitUsername, &c.GitUsername)
	str(EnvGitToken, &c.GitToken)
	if v, ok := lookup(EnvCommitLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvCommitLimit, v, ErrInvalidCommitLimit)
		}
		c.CommitLimit = n
	}
	if v, ok := lookup(EnvGitTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvGitTimeout, v, ErrInvalidGitTimeout)
		}
		c.GitTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%q: %w", c.LogLevel, ErrInvalidLogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%q: %w", c.LogFormat, ErrInvalidLogFormat)
	}
	if c.CommitLimit <= 0 {
		return ErrInvalidCommitLimit
	}
	if c.GitTimeout <= 0 {
		return ErrInvalidGitTimeout
	}
	if strings.TrimSpace(c.Remote) == "" {
		return ErrInvalidRemote
	}
	return nil
}
