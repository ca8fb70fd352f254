package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/api"
)

func newDECmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "de",
		Aliases: []string{"dataextension", "dataextensions"},
		Short:   "Inspect data extensions and their contents",
	}

	cmd.AddCommand(newDEListCmd())
	cmd.AddCommand(newDEFieldsCmd())
	cmd.AddCommand(newDERowsCmd())

	return cmd
}

func newDEListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List data extensions",
		Example: "queryforge de list",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			extensions, err := client.DataExtensions().List(cmdContext(cmd))
			if err != nil {
				return err
			}

			f := newFormatter(cmd)
			if f.JSONWanted() {
				return f.Output(extensions)
			}
			if len(extensions) == 0 {
				f.Empty("No data extensions found.")
				return nil
			}

			f.StartTable("NAME", "KEY", "SENDABLE")
			for _, de := range extensions {
				f.Row(de.Name, de.CustomerKey, fmt.Sprintf("%t", de.IsSendable))
			}
			return f.EndTable()
		}),
	}
}

func newDEFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fields <name-or-key>",
		Aliases: []string{"schema"},
		Short:   "Show a data extension's field definitions",
		Example: "queryforge de fields Active_Subscribers",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			key, err := client.DataExtensions().ResolveKey(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			fields, err := client.DataExtensions().Fields(cmdContext(cmd), key)
			if err != nil {
				return err
			}

			f := newFormatter(cmd)
			if f.JSONWanted() {
				return f.Output(map[string]any{"key": key, "items": fields})
			}
			if len(fields) == 0 {
				f.Empty("No fields found.")
				return nil
			}

			f.StartTable("NAME", "TYPE", "LENGTH", "PRIMARY", "REQUIRED")
			for _, fd := range fields {
				length := ""
				if fd.MaxLength > 0 {
					length = fmt.Sprintf("%d", fd.MaxLength)
				}
				f.Row(fd.Name, fd.FieldType, length, fmt.Sprintf("%t", fd.IsPrimaryKey), fmt.Sprintf("%t", fd.IsRequired))
			}
			return f.EndTable()
		}),
	}
}

func newDERowsCmd() *cobra.Command {
	var (
		page     int
		pageSize int
		all      bool
	)

	cmd := &cobra.Command{
		Use:     "rows <name-or-key>",
		Aliases: []string{"data"},
		Short:   "Retrieve rows from a data extension",
		Example: strings.TrimSpace(`
  # First page of rows
  queryforge de rows Active_Subscribers

  # All rows as JSON Lines
  queryforge de rows Active_Subscribers --all -o jsonl
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if all && cmd.Flags().Changed("page") {
				return fmt.Errorf("--all and --page cannot be used together")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			key, err := client.DataExtensions().ResolveKey(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if all {
				rows, err := client.Rows().All(cmdContext(cmd), key)
				if err != nil {
					return err
				}
				return printRows(cmd, rowValues(rows), len(rows))
			}

			result, err := client.Rows().Page(cmdContext(cmd), key, page, pageSize)
			if err != nil {
				return err
			}
			return printRows(cmd, rowValues(result.Items), result.Count)
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number to retrieve")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (provider default when 0)")
	cmd.Flags().BoolVar(&all, "all", false, "Retrieve every page")
	flagAlias(cmd.Flags(), "page-size", "ps")

	return cmd
}

// rowValues flattens rows to their value maps for display; key columns are
// repeated in values by the provider, so nothing is lost.
func rowValues(rows []api.Row) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		merged := make(map[string]string, len(r.Keys)+len(r.Values))
		for k, v := range r.Keys {
			merged[k] = v
		}
		for k, v := range r.Values {
			merged[k] = v
		}
		out = append(out, merged)
	}
	return out
}

func printRows(cmd *cobra.Command, rows []map[string]string, total int) error {
	f := newFormatter(cmd)
	if f.JSONWanted() {
		return f.Output(map[string]any{"count": total, "items": rows})
	}
	if len(rows) == 0 {
		f.Empty("No rows found.")
		return nil
	}

	columns := rowColumns(rows)
	f.StartTable(columns...)
	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		f.Row(values...)
	}
	return f.EndTable()
}

// rowColumns returns the union of column names across rows, sorted so
// output stays stable across runs.
func rowColumns(rows []map[string]string) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)
	return columns
}
