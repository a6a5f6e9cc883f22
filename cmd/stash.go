package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/stash"
)

func (a *app) stashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Save, list and restore work in progress",
	}
	cmd.AddCommand(
		a.stashCreateCommand(),
		&cobra.Command{
			Use:   "list",
			Short: "List stashes, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				entries, err := s.stash.List(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(entries)
			},
		},
		a.stashApplyCommand("apply", "Apply a stash and keep it", (*stash.Manager).Apply),
		a.stashApplyCommand("pop", "Apply a stash and drop it unless it conflicted", (*stash.Manager).Pop),
		&cobra.Command{
			Use:   "drop [INDEX]",
			Short: "Delete a stash; later entries shift down",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := stashIndex(args)
				if err != nil {
					return err
				}
				s, err := a.open()
				if err != nil {
					return err
				}
				if err := s.stash.Drop(cmd.Context(), index); err != nil {
					return err
				}
				return a.print(map[string]any{"success": true, "index": index})
			},
		},
		&cobra.Command{
			Use:   "diff [INDEX]",
			Short: "List the files a stash changes",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := stashIndex(args)
				if err != nil {
					return err
				}
				s, err := a.open()
				if err != nil {
					return err
				}
				files, err := s.stash.Diff(cmd.Context(), index)
				if err != nil {
					return err
				}
				return a.print(files)
			},
		},
	)
	return cmd
}

func (a *app) stashCreateCommand() *cobra.Command {
	var opts stash.CreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save local changes and reset the working tree to HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			entry, err := s.stash.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(entry)
		},
	}
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "stash message")
	cmd.Flags().BoolVarP(&opts.IncludeUntracked, "include-untracked", "u", false, "stash untracked files too")
	cmd.Flags().BoolVar(&opts.KeepIndex, "keep-index", false, "leave staged changes in place")
	return cmd
}

type applyFunc func(m *stash.Manager, ctx context.Context, index int, restoreIndex bool) (stash.ApplyOutcome, error)

func (a *app) stashApplyCommand(use, short string, apply applyFunc) *cobra.Command {
	var restoreIndex bool
	cmd := &cobra.Command{
		Use:   use + " [INDEX]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := stashIndex(args)
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			out, err := apply(s.stash, cmd.Context(), index, restoreIndex)
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
	cmd.Flags().BoolVar(&restoreIndex, "index", false, "restore staged changes as staged")
	return cmd
}

// stashIndex reads the optional INDEX argument; stash@{n} and n are both accepted.
func stashIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(args[0], "stash@{"), "}")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, grafterrors.NewInputError("invalid stash index %q", args[0])
	}
	return n, nil
}
