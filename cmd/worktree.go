package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/highlight"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List staged, unstaged and conflicted files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			st, err := s.git.WorkingStatus(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(st)
		},
	}
}

func (a *app) diffCommand() *cobra.Command {
	var staged, color bool
	cmd := &cobra.Command{
		Use:   "diff FILE",
		Short: "Diff a working file against the index, or the index against HEAD with --staged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			text, err := s.git.FileDiff(args[0], staged)
			if err != nil {
				return err
			}
			if color {
				return highlight.New("", "").Diff(a.stdout, text)
			}
			return a.print(map[string]string{"path": args[0], "diff": text})
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "diff the index against HEAD")
	cmd.Flags().BoolVar(&color, "color", false, "print a coloured diff instead of JSON")
	return cmd
}

// pathsCommand builds stage, unstage and discard, which share a shape.
func (a *app) pathsCommand(use, short string, op func(*services, context.Context, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " FILE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := op(s, cmd.Context(), args); err != nil {
				return err
			}
			return a.print(map[string]any{"success": true, "files": args})
		},
	}
}

func (a *app) stageCommand() *cobra.Command {
	return a.pathsCommand("stage", "Stage files for the next commit", func(s *services, ctx context.Context, files []string) error {
		return s.git.Stage(ctx, files)
	})
}

func (a *app) unstageCommand() *cobra.Command {
	return a.pathsCommand("unstage", "Remove files from the index, keeping the working copy", func(s *services, ctx context.Context, files []string) error {
		return s.git.Unstage(ctx, files)
	})
}

func (a *app) discardCommand() *cobra.Command {
	return a.pathsCommand("discard", "Throw away working changes; untracked files are deleted", func(s *services, ctx context.Context, files []string) error {
		return s.git.Discard(ctx, files)
	})
}

func (a *app) commitCommand() *cobra.Command {
	var (
		message string
		amend   bool
	)
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			hash, err := s.git.CreateCommit(cmd.Context(), message, amend)
			if err != nil {
				return err
			}
			return a.print(map[string]string{"hash": hash})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVar(&amend, "amend", false, "replace the last commit")
	return cmd
}
