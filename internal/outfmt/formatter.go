package outfmt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter renders one command's output in whichever mode the context
// selected: Output for the JSON path, StartTable/Row/EndTable for the
// text path.
type Formatter struct {
	ctx    context.Context
	out    io.Writer
	errOut io.Writer
	table  *tabwriter.Writer
}

// NewFormatter creates a Formatter bound to the command's context and
// streams.
func NewFormatter(ctx context.Context, out, errOut io.Writer) *Formatter {
	return &Formatter{
		ctx:    ctx,
		out:    out,
		errOut: errOut,
		table:  tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
	}
}

// JSONWanted reports whether the command should render JSON.
func (f *Formatter) JSONWanted() bool {
	return IsJSON(f.ctx)
}

// Output renders data as JSON, honoring the context's jq query, template,
// and compactness. No-op in text mode.
func (f *Formatter) Output(data any) error {
	if !IsJSON(f.ctx) {
		return nil
	}
	query := GetQuery(f.ctx)
	if tmpl := GetTemplate(f.ctx); tmpl != "" {
		filtered, err := ApplyQuery(data, query)
		if err != nil {
			return err
		}
		return WriteTemplate(f.out, filtered, tmpl)
	}
	return WriteJSONFiltered(f.out, data, query, IsCompact(f.ctx))
}

// StartTable writes the header row. Returns false (and writes nothing)
// in JSON mode so callers can skip row building.
func (f *Formatter) StartTable(headers ...string) bool {
	if IsJSON(f.ctx) {
		return false
	}
	_, _ = fmt.Fprintln(f.table, strings.Join(headers, "\t"))
	return true
}

// Row writes one table row.
func (f *Formatter) Row(columns ...string) {
	_, _ = fmt.Fprintln(f.table, strings.Join(columns, "\t"))
}

// EndTable flushes the table.
func (f *Formatter) EndTable() error {
	return f.table.Flush()
}

// Empty notes an empty result set on stderr, keeping stdout clean for
// pipelines.
func (f *Formatter) Empty(message string) {
	_, _ = fmt.Fprintln(f.errOut, message)
}
