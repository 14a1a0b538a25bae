package cli

import (
	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/buildinfo"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeData(cmd, app, nil, map[string]any{
				"version":    buildinfo.DisplayVersion(),
				"rawVersion": buildinfo.Version,
				"commit":     buildinfo.Commit,
				"date":       buildinfo.Date,
				"userAgent":  buildinfo.UserAgent(),
				"summary":    buildinfo.Summary(),
			})
		},
	}
}
