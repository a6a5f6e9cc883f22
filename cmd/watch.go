package cmd

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/git"
	"github.com/Dancode-188/graft/internal/watch"
)

// change is one line of watch output.
type change struct {
	Time time.Time    `json:"time"`
	Repo git.RepoInfo `json:"repo"`
}

func (a *app) watchCommand() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print one JSON line with the repository state after each burst of changes",
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
			enc := json.NewEncoder(a.stdout)
			if err := enc.Encode(change{Time: time.Now(), Repo: info}); err != nil {
				return err
			}
			return watch.Run(cmd.Context(), info.Path, delay, func() {
				info, err := s.git.Info()
				if err != nil {
					slog.Warn("refresh after change failed", slog.Any("error", err))
					return
				}
				if err := enc.Encode(change{Time: time.Now(), Repo: info}); err != nil {
					slog.Warn("write change", slog.Any("error", err))
				}
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "quiet period before a burst of changes is reported")
	return cmd
}
