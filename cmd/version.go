package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Dancode-188/graft/internal/buildinfo"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.print(buildinfo.Read())
		},
	}
}
