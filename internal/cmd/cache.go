package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local metadata cache",
		Long: `Manage the local metadata cache.

Data extension listings are cached briefly so repeated name lookups
do not re-retrieve the whole tenant. Set QUERYFORGE_NO_CACHE=1 to
bypass the cache entirely.`,
	}

	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "clear",
		Short:   "Remove all cached metadata",
		Example: "queryforge cache clear",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			dir, err := cache.DefaultDir()
			if err != nil {
				return fmt.Errorf("locating cache directory: %w", err)
			}
			cache.ClearAll(dir)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		}),
	}
}
