package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/update"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queryforge version %s\n", version)

			// Update hints go to stderr so `queryforge version` stays
			// script-friendly on stdout.
			if r := update.CheckForUpdate(cmd.Context(), version); r != nil && r.UpdateAvailable {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nUpdate available: %s -> %s\nDownload: %s\n",
					r.CurrentVersion, r.LatestVersion, r.UpdateURL)
			}
		},
	}
}
