package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/api"
	"github.com/queryforge/queryforge-cli/internal/dryrun"
)

// queryStatusPollInterval is the delay between isrunning polls with --wait.
var queryStatusPollInterval = 5 * time.Second

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q", "queries"},
		Short:   "Manage and run SQL query activities",
	}

	cmd.AddCommand(newQueryListCmd())
	cmd.AddCommand(newQueryGetCmd())
	cmd.AddCommand(newQueryCreateCmd())
	cmd.AddCommand(newQueryRunCmd())
	cmd.AddCommand(newQueryStatusCmd())
	cmd.AddCommand(newQueryDeleteCmd())

	return cmd
}

func newQueryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List query activities",
		Example: "queryforge query list",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			queries, err := client.Queries().List(cmdContext(cmd))
			if err != nil {
				return err
			}

			f := newFormatter(cmd)
			if f.JSONWanted() {
				return f.Output(queries)
			}
			if len(queries) == 0 {
				f.Empty("No query activities found.")
				return nil
			}

			f.StartTable("ID", "NAME", "TARGET", "MODIFIED")
			for _, q := range queries {
				f.Row(q.QueryDefinitionID, q.Name, q.TargetName, q.ModifiedDate)
			}
			return f.EndTable()
		}),
	}
}

func newQueryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Aliases: []string{"g"},
		Short:   "Show a query activity",
		Example: "queryforge query get f2143b1a-1234-4c7a-a543-9f3e271cabc1",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			def, err := client.Queries().Get(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, def)
			}

			printQueryDefinition(cmd, def)
			return nil
		}),
	}
}

func newQueryCreateCmd() *cobra.Command {
	var (
		name       string
		key        string
		text       string
		file       string
		target     string
		targetKey  string
		updateType string
		desc       string
		start      bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a query activity",
		Long: strings.TrimSpace(`
Create a SQL query activity that writes its results into a target data
extension. The query text can be given inline with --text or read from a
file with --file ('-' for stdin).
`),
		Example: strings.TrimSpace(`
  # Create from an inline query
  queryforge query create --name "Active subscribers" --target Active_Subscribers --text "SELECT SubscriberKey FROM _Subscribers WHERE Status = 'active'"

  # Create from a file and start it immediately
  queryforge query create --name Nightly --target Nightly_DE --file nightly.sql --start
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if text != "" && file != "" {
				return fmt.Errorf("--text and --file cannot be used together")
			}
			if file != "" {
				data, err := readQueryTextFile(file)
				if err != nil {
					return err
				}
				text = data
			}
			if text == "" {
				return fmt.Errorf("--text or --file is required")
			}

			if dryrun.IsEnabled(cmdContext(cmd)) {
				preview := &dryrun.Preview{
					Action: "create",
					Target: fmt.Sprintf("query activity %q", name),
					Fields: map[string]string{
						"target":      target,
						"update-type": updateType,
						"text":        summarizeQueryText(text),
					},
				}
				if start {
					preview.Notes = append(preview.Notes, "a run would be queued immediately after creation")
				}
				preview.Write(cmd.OutOrStdout())
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			def, err := client.Queries().Create(cmdContext(cmd), api.QueryDefinition{
				Name:             name,
				Key:              key,
				Description:      desc,
				QueryText:        text,
				TargetName:       target,
				TargetKey:        targetKey,
				TargetUpdateType: updateType,
			})
			if err != nil {
				return err
			}

			if start {
				if err := client.Queries().Start(cmdContext(cmd), def.QueryDefinitionID); err != nil {
					return err
				}
			}

			if isJSON(cmd) {
				return printJSON(cmd, def)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created query activity %s (%s)\n", def.Name, def.QueryDefinitionID)
			if start {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Started.")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Query activity name (required)")
	cmd.Flags().StringVar(&key, "key", "", "External key (optional, provider generates one when empty)")
	cmd.Flags().StringVar(&text, "text", "", "SQL query text")
	cmd.Flags().StringVar(&file, "file", "", "Read SQL query text from file ('-' for stdin)")
	cmd.Flags().StringVar(&target, "target", "", "Target data extension name (required)")
	cmd.Flags().StringVar(&targetKey, "target-key", "", "Target data extension external key (optional)")
	cmd.Flags().StringVar(&updateType, "update-type", "", "Target update behavior: Overwrite|Append|Update (default Overwrite)")
	cmd.Flags().StringVar(&desc, "description", "", "Description (optional)")
	cmd.Flags().BoolVar(&start, "start", false, "Start the query after creating it")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	flagAlias(cmd.Flags(), "update-type", "ut")
	flagAlias(cmd.Flags(), "description", "desc")

	return cmd
}

func newQueryRunCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:     "run <id>",
		Aliases: []string{"start"},
		Short:   "Start a query activity",
		Example: strings.TrimSpace(`
  # Queue a run
  queryforge query run f2143b1a-1234-4c7a-a543-9f3e271cabc1

  # Queue a run and poll until it finishes
  queryforge query run f2143b1a-1234-4c7a-a543-9f3e271cabc1 --wait
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if dryrun.IsEnabled(cmdContext(cmd)) {
				preview := &dryrun.Preview{
					Action: "run",
					Target: "query activity " + args[0],
				}
				preview.Write(cmd.OutOrStdout())
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			id := args[0]
			if err := client.Queries().Start(cmdContext(cmd), id); err != nil {
				return err
			}

			if !wait {
				if isJSON(cmd) {
					return printJSON(cmd, map[string]any{"queryDefinitionId": id, "queued": true})
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Queued query activity %s.\n", id)
				return nil
			}

			status, err := waitForQuery(cmdContext(cmd), client, id)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, status)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Query activity %s finished.\n", id)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the run completes")

	return cmd
}

func newQueryStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status <id>",
		Aliases: []string{"st"},
		Short:   "Show whether a query activity is running",
		Example: "queryforge query status f2143b1a-1234-4c7a-a543-9f3e271cabc1",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			status, err := client.Queries().Status(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, status)
			}

			state := "idle"
			if status.Running {
				state = "running"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Query activity %s is %s.\n", status.QueryDefinitionID, state)
			return nil
		}),
	}
}

func newQueryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a query activity",
		Example: "queryforge query delete f2143b1a-1234-4c7a-a543-9f3e271cabc1",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if dryrun.IsEnabled(cmdContext(cmd)) {
				preview := &dryrun.Preview{
					Action: "delete",
					Target: "query activity " + args[0],
				}
				preview.Write(cmd.OutOrStdout())
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if err := client.Queries().Delete(cmdContext(cmd), args[0]); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"queryDefinitionId": args[0], "deleted": true})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted query activity %s.\n", args[0])
			return nil
		}),
	}
}

// waitForQuery polls the isrunning endpoint until the activity stops running
// or the context is done.
func waitForQuery(ctx context.Context, client *api.Client, id string) (*api.QueryStatus, error) {
	for {
		status, err := client.Queries().Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if !status.Running {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(queryStatusPollInterval):
		}
	}
}

// summarizeQueryText keeps dry-run previews readable for long statements.
func summarizeQueryText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const max = 80
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}

func readQueryTextFile(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query text from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read --file %q: %w", path, err)
		}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("query text file %q is empty", path)
	}
	return text, nil
}

func printQueryDefinition(cmd *cobra.Command, def *api.QueryDefinition) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "ID: %s\n", def.QueryDefinitionID)
	_, _ = fmt.Fprintf(out, "Name: %s\n", def.Name)
	if def.Key != "" {
		_, _ = fmt.Fprintf(out, "Key: %s\n", def.Key)
	}
	if def.Description != "" {
		_, _ = fmt.Fprintf(out, "Description: %s\n", def.Description)
	}
	_, _ = fmt.Fprintf(out, "Target: %s", def.TargetName)
	if def.TargetKey != "" {
		_, _ = fmt.Fprintf(out, " (%s)", def.TargetKey)
	}
	_, _ = fmt.Fprintln(out)
	if def.TargetUpdateType != "" {
		_, _ = fmt.Fprintf(out, "Update Type: %s\n", def.TargetUpdateType)
	}
	if def.ModifiedDate != "" {
		_, _ = fmt.Fprintf(out, "Modified: %s\n", def.ModifiedDate)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, def.QueryText)
}
