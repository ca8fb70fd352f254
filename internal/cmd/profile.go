package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/config"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"pr"},
		Short:   "Manage credential profiles",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runProfileList(cmd)
		}),
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileUseCmd())

	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved credential profiles",
		Example: "queryforge profile list",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runProfileList(cmd)
		}),
	}
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "use <name>",
		Aliases: []string{"switch"},
		Short:   "Switch the current credential profile",
		Example: "queryforge profile use staging",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, err := config.LoadProfile(name); err != nil {
				if err == config.ErrNotConfigured {
					return fmt.Errorf("profile %q not found; run 'queryforge auth login --profile %s' first", name, name)
				}
				return err
			}
			if err := config.SetCurrentProfile(name); err != nil {
				return fmt.Errorf("failed to switch profile: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %s.\n", name)
			return nil
		}),
	}
}

func runProfileList(cmd *cobra.Command) error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	current, _ := config.CurrentProfile()

	if isJSON(cmd) {
		type profileEntry struct {
			Name    string `json:"name"`
			Current bool   `json:"current"`
		}
		entries := make([]profileEntry, 0, len(profiles))
		for _, p := range profiles {
			entries = append(entries, profileEntry{Name: p, Current: p == current})
		}
		return printJSON(cmd, map[string]any{"profiles": entries})
	}

	if len(profiles) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved. Run 'queryforge auth login' to create one.")
		return nil
	}

	w := newTabWriterFromCmd(cmd)
	defer func() { _ = w.Flush() }()
	_, _ = fmt.Fprintln(w, "NAME\tCURRENT")
	for _, p := range profiles {
		marker := ""
		if p == current {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", p, marker)
	}
	return nil
}
