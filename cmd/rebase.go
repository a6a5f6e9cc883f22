package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/rebase"
)

func (a *app) rebaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Plan, run and resume interactive rebases",
	}
	var planPath, onto string
	planFlag := func(c *cobra.Command) *cobra.Command {
		c.Flags().StringVar(&planPath, "plan", "-", "YAML or JSON list of {hash, action, new_message}; - reads stdin")
		return c
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "commits BASE",
			Short: "List BASE..HEAD oldest first as a starting plan",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				commits, err := s.rebase.Commits(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(commits)
			},
		},
		planFlag(&cobra.Command{
			Use:   "validate",
			Short: "Check a plan without touching the repository",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				plan, err := a.readPlan(planPath)
				if err != nil {
					return err
				}
				s, err := a.open()
				if err != nil {
					return err
				}
				return a.print(s.rebase.Validate(plan))
			},
		}),
		planFlag(&cobra.Command{
			Use:   "preview",
			Short: "Summarise what a plan would do",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				plan, err := a.readPlan(planPath)
				if err != nil {
					return err
				}
				s, err := a.open()
				if err != nil {
					return err
				}
				return a.print(s.rebase.Preview(plan))
			},
		}),
		a.withOnto(&onto, planFlag(&cobra.Command{
			Use:   "start BASE",
			Short: "Rewrite BASE..HEAD according to a plan",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				plan, err := a.readPlan(planPath)
				if err != nil {
					return err
				}
				s, err := a.open()
				if err != nil {
					return err
				}
				res, err := s.rebase.Start(cmd.Context(), rebase.Request{Base: args[0], Onto: onto, Plan: plan})
				if err != nil {
					return err
				}
				return a.print(res)
			},
		})),
		&cobra.Command{
			Use:   "continue",
			Short: "Resume after resolving conflicts or finishing an edit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				res, err := s.rebase.Continue(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(res)
			},
		},
		&cobra.Command{
			Use:   "abort",
			Short: "Restore the branch, index and working tree to before the rebase",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				res, err := s.rebase.Abort(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(res)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report the rebase in progress, if any",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open()
				if err != nil {
					return err
				}
				st, err := s.rebase.Status()
				if err != nil {
					return err
				}
				return a.print(st)
			},
		},
	)
	return cmd
}

func (a *app) withOnto(onto *string, c *cobra.Command) *cobra.Command {
	c.Flags().StringVar(onto, "onto", "", "replay onto this commit instead of BASE")
	return c
}

func (a *app) readPlan(path string) ([]rebase.Instruction, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read rebase plan: %w", err)
	}
	var plan []rebase.Instruction
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, grafterrors.NewInputError("rebase plan is not a list of instructions: %v", err)
	}
	return plan, nil
}
