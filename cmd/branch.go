package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/git"
)

func (a *app) branchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "List and manage branches",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List local then remote-tracking branches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				branches, err := s.git.Branches()
				if err != nil {
					return err
				}
				return a.print(branches)
			},
		},
		a.branchCreateCommand(),
		a.branchDeleteCommand(),
		&cobra.Command{
			Use:   "rename OLD NEW",
			Short: "Rename a local branch",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				if err := s.git.RenameBranch(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return a.print(map[string]any{"success": true, "name": args[1]})
			},
		},
		&cobra.Command{
			Use:   "switch NAME",
			Short: "Check out a local branch; the working tree must be clean",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				if err := s.git.SwitchBranch(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.print(map[string]any{"success": true, "name": args[0]})
			},
		},
	)
	return cmd
}

func (a *app) branchCreateCommand() *cobra.Command {
	var opts git.CreateBranchOptions
	cmd := &cobra.Command{
		Use:   "create NAME [START]",
		Short: "Create a branch at START, or at HEAD",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			opts.Name = args[0]
			if len(args) == 2 {
				opts.Start = args[1]
			}
			if err := s.git.CreateBranch(cmd.Context(), opts); err != nil {
				return err
			}
			return a.print(map[string]any{"success": true, "name": opts.Name})
		},
	}
	cmd.Flags().BoolVar(&opts.Checkout, "checkout", false, "switch to the new branch")
	return cmd
}

func (a *app) branchDeleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a local branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := s.git.DeleteBranch(cmd.Context(), args[0], force); err != nil {
				return err
			}
			return a.print(map[string]any{"success": true, "name": args[0]})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete even if not merged")
	return cmd
}
