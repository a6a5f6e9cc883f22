package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/remote"
)

func (a *app) remoteCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "remote-status",
		Short: "Compare the current branch with its remote-tracking branch (no network)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			st, err := s.remote.Status(cmd.Context(), name)
			if err != nil {
				return err
			}
			return a.print(st)
		},
	}
	cmd.Flags().StringVar(&name, "remote", "", "remote name (default: upstream, then config)")
	return cmd
}

func (a *app) fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [REMOTE]",
		Short: "Update remote-tracking branches; progress goes to stderr",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			out, err := s.remote.Fetch(cmd.Context(), name, a.progressPrinter())
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
}

func (a *app) pullCommand() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "pull [REMOTE]",
		Short: "Fetch and integrate the current branch's remote counterpart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := remote.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			req := remote.PullRequest{Strategy: st, Progress: a.progressPrinter()}
			if len(args) == 1 {
				req.Remote = args[0]
			}
			out, err := s.remote.Pull(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(remote.StrategyMerge), "merge or rebase when histories diverged")
	return cmd
}

func (a *app) mergeAbortCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge-abort",
		Short: "Abandon a merge left in progress by pull",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := s.remote.MergeAbort(cmd.Context()); err != nil {
				return err
			}
			return a.print(map[string]bool{"success": true})
		},
	}
}

func (a *app) pushCommand() *cobra.Command {
	var (
		req  remote.PushRequest
		mode string
	)
	cmd := &cobra.Command{
		Use:   "push [REMOTE]",
		Short: "Push a branch; rejections are reported, not treated as errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := remote.ParsePushMode(mode)
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			req.Mode = m
			req.Progress = a.progressPrinter()
			if len(args) == 1 {
				req.Remote = args[0]
			}
			out, err := s.remote.Push(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
	cmd.Flags().StringVar(&req.Branch, "branch", "", "branch to push (default: current)")
	cmd.Flags().StringVar(&mode, "mode", string(remote.PushPlain), "plain, force or force-with-lease")
	cmd.Flags().StringVar(&req.ExpectedOld, "expect", "", "remote hash force-with-lease must find (default: remote-tracking ref)")
	cmd.Flags().BoolVarP(&req.SetUpstream, "set-upstream", "u", false, "record the remote branch as upstream")
	return cmd
}
