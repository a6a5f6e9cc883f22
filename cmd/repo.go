package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/git"
	"github.com/Dancode-188/graft/internal/highlight"
)

func (a *app) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Describe the repository: branch, HEAD state and operation in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			info, err := s.git.Info()
			if err != nil {
				return err
			}
			return a.print(info)
		},
	}
}

func (a *app) stateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the operation in progress (none, rebase, merge, cherry-pick, revert, bisect)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			state, err := s.git.State()
			if err != nil {
				return err
			}
			return a.print(map[string]string{"state": state})
		},
	}
}

func (a *app) logCommand() *cobra.Command {
	var (
		refs []string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List commits newest first with branch and tag decorations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			commits, err := s.git.Commits(cmd.Context(), git.CommitQuery{
				Limit: a.cfg.CommitLimit,
				Refs:  refs,
				All:   all,
			})
			if err != nil {
				return err
			}
			return a.print(commits)
		},
	}
	cmd.Flags().StringSliceVar(&refs, "ref", nil, "start from these revisions instead of HEAD")
	cmd.Flags().BoolVar(&all, "all", false, "start from every branch and tag")
	return cmd
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find commits whose hash, author or message contains QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			commits, err := s.git.Search(cmd.Context(), args[0], a.cfg.CommitLimit)
			if err != nil {
				return err
			}
			return a.print(commits)
		},
	}
}

func (a *app) filesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files COMMIT",
		Short: "List the files a commit changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			files, err := s.git.CommitFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(files)
		},
	}
}

func (a *app) showCommand() *cobra.Command {
	var (
		file  string
		color bool
	)
	cmd := &cobra.Command{
		Use:   "show COMMIT",
		Short: "Print a commit header and patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			diff, err := s.git.Diff(cmd.Context(), args[0], file)
			if err != nil {
				return err
			}
			if color {
				return highlight.New("", "").Diff(a.stdout, diff.Text)
			}
			return a.print(diff)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "only show this path")
	cmd.Flags().BoolVar(&color, "color", false, "print a coloured patch instead of JSON")
	return cmd
}
