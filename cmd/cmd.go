// Package cmd is the graft command line. Every command prints one JSON
// document on stdout; failures print {"error": "..."} and exit non-zero.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/buildinfo"
	"github.com/Dancode-188/graft/internal/config"
	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git"
	"github.com/Dancode-188/graft/internal/git/backend"
	"github.com/Dancode-188/graft/internal/logging"
	"github.com/Dancode-188/graft/internal/rebase"
	"github.com/Dancode-188/graft/internal/remote"
	"github.com/Dancode-188/graft/internal/stash"
)

// Run executes the command line in os.Args. The error has already been
// reported on stdout when it is returned.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if a.closeLog != nil {
		_ = a.closeLog.Close()
	}
	if err != nil {
		a.printError(err)
	}
	return err
}

// app carries the global flags and what they produce.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	repoPath   string
	verbose    bool
	limit      int

	cfg      config.Config
	closeLog io.Closer
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "graft",
		Short:         "Git repository operations for the graft desktop client",
		Version:       buildinfo.Read().String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/graft/config.yaml)")
	flags.StringVarP(&a.repoPath, "repo", "C", ".", "repository path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	flags.IntVar(&a.limit, "limit", 0, "maximum number of commits to return (default from config)")

	root.AddCommand(
		a.openCommand(),
		a.stateCommand(),
		a.logCommand(),
		a.searchCommand(),
		a.filesCommand(),
		a.showCommand(),
		a.statusCommand(),
		a.diffCommand(),
		a.stageCommand(),
		a.unstageCommand(),
		a.discardCommand(),
		a.commitCommand(),
		a.branchCommand(),
		a.remoteCommand(),
		a.fetchCommand(),
		a.pullCommand(),
		a.mergeAbortCommand(),
		a.pushCommand(),
		a.rebaseCommand(),
		a.stashCommand(),
		a.watchCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("limit") {
		if a.limit <= 0 {
			return fmt.Errorf("--limit must be positive: %w", config.ErrInvalidCommitLimit)
		}
		cfg.CommitLimit = a.limit
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stderr: a.stderr,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger.With(slog.String("cmd", cmd.CommandPath())))
	a.cfg = cfg
	a.closeLog = closer
	return nil
}

// services bundles everything a command may need for one repository.
type services struct {
	repo   *backend.Repo
	git    *git.Service
	rebase *rebase.Engine
	remote *remote.Service
	stash  *stash.Manager
}

func (a *app) open() (*services, error) {
	svc, repo, err := git.Open(a.repoPath,
		backend.WithCommandTimeout(a.cfg.GitTimeout),
		backend.WithCredentials(backend.Credentials{Username: a.cfg.GitUsername, Token: a.cfg.GitToken}),
	)
	if err != nil {
		return nil, err
	}
	engine := rebase.NewEngine(repo)
	return &services{
		repo:   repo,
		git:    svc,
		rebase: engine,
		remote: remote.New(repo, engine, remote.WithDefaultRemote(a.cfg.Remote)),
		stash:  stash.NewManager(repo),
	}, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printError(err error) {
	slog.Debug("command failed", slog.Any("error", err))
	_ = a.print(errorBody{Error: err.Error(), Kind: errorKind(err)})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// errorKind names the class of err so callers can react without parsing
// messages.
func errorKind(err error) string {
	switch {
	case errors.Is(err, grafterrors.ErrInvalidInput),
		errors.Is(err, grafterrors.ErrPathNotFound),
		errors.Is(err, grafterrors.ErrNotARepository),
		errors.Is(err, grafterrors.ErrBareRepository):
		return "input"
	case errors.Is(err, grafterrors.ErrDirtyWorkingTree),
		errors.Is(err, grafterrors.ErrOperationInProgress),
		errors.Is(err, grafterrors.ErrNoOperationInProgress),
		errors.Is(err, grafterrors.ErrReferenceNotFound),
		errors.Is(err, grafterrors.ErrUnbornHead),
		errors.Is(err, grafterrors.ErrDetachedHead),
		errors.Is(err, grafterrors.ErrNothingToStash),
		errors.Is(err, grafterrors.ErrNothingToCommit):
		return "precondition"
	case errors.Is(err, grafterrors.ErrTransport):
		return "transport"
	case errors.Is(err, grafterrors.ErrInvariant):
		return "invariant"
	}
	return "internal"
}

// progressPrinter writes transfer progress to stderr, keeping stdout JSON.
func (a *app) progressPrinter() backend.ProgressFunc {
	return func(line string) {
		fmt.Fprintln(a.stderr, line)
	}
}
