// Package dryrun lets mutating commands preview the request they would
// send instead of sending it.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"sort"
)

type contextKey struct{}

// WithDryRun returns a context with dry-run mode enabled or disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled reports whether dry-run mode is enabled on the context.
func IsEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(contextKey{}).(bool)
	return enabled
}

// Preview describes a mutation that was skipped because of dry-run mode.
type Preview struct {
	Action string            // e.g. "create", "run", "delete"
	Target string            // e.g. `query activity "Nightly"`
	Fields map[string]string // request payload summary
	Notes  []string          // caveats about what the real run would do
}

// Write renders the preview. Fields print in sorted order so output is
// stable for tests and scripts.
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Dry run: would %s %s\n", p.Action, p.Target)

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", name, p.Fields[name])
	}

	for _, note := range p.Notes {
		_, _ = fmt.Fprintf(w, "  note: %s\n", note)
	}

	_, _ = fmt.Fprintln(w, "No changes made.")
}
