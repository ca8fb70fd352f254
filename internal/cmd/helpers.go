package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/queryforge/queryforge-cli/internal/api"
	"github.com/queryforge/queryforge-cli/internal/iocontext"
	"github.com/queryforge/queryforge-cli/internal/outfmt"
)

// getJQQuery returns the jq expression from --jq, falling back to --query.
func getJQQuery() string {
	if flags.JQ != "" {
		return flags.JQ
	}
	return flags.Query
}

// getClient creates an API client from stored credentials.
func getClient() (*api.Client, error) {
	return newClientFactory().client()
}

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func newTabWriterFromCmd(cmd *cobra.Command) *tabwriter.Writer {
	return newTabWriter(iocontext.GetIO(cmd.Context()).Out)
}

// newFormatter builds an output formatter bound to the command's streams.
func newFormatter(cmd *cobra.Command) *outfmt.Formatter {
	ioStreams := iocontext.GetIO(cmd.Context())
	return outfmt.NewFormatter(cmd.Context(), ioStreams.Out, ioStreams.ErrOut)
}

// printJSON writes v as JSON, applying any jq query or template the
// invocation carried.
func printJSON(cmd *cobra.Command, v any) error {
	ioStreams := iocontext.GetIO(cmd.Context())
	query := outfmt.GetQuery(cmd.Context())
	if tmpl := outfmt.GetTemplate(cmd.Context()); tmpl != "" {
		filtered, err := outfmt.ApplyQuery(v, query)
		if err != nil {
			return err
		}
		return outfmt.WriteTemplate(ioStreams.Out, filtered, tmpl)
	}
	return outfmt.WriteJSONFiltered(ioStreams.Out, v, query, outfmt.IsCompact(cmd.Context()))
}

func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

func cmdContext(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

// aliasBridgeValue forwards Set calls to the canonical flag's value and
// marks the canonical flag Changed, so hidden aliases satisfy
// MarkFlagRequired.
type aliasBridgeValue struct {
	pflag.Value
	canonical *pflag.Flag
}

func (v *aliasBridgeValue) Set(s string) error {
	if err := v.Value.Set(s); err != nil {
		return err
	}
	v.canonical.Changed = true
	return nil
}

// flagAlias registers a hidden alias for an existing flag. Alias and
// canonical flag share one Value, so setting either sets both.
func flagAlias(fs *pflag.FlagSet, name, alias string) {
	canonical := fs.Lookup(name)
	if canonical == nil {
		panic(fmt.Sprintf("flagAlias: flag %q not found", name))
	}

	a := *canonical // shallow copy shares the Value
	a.Name = alias
	a.Shorthand = ""
	a.Usage = ""
	a.Hidden = true
	a.Value = &aliasBridgeValue{Value: canonical.Value, canonical: canonical}

	// The "alias-of" annotation is how flagOrAliasChanged finds us. The
	// required-flag annotation must not be copied or Cobra would demand
	// the alias too.
	ann := map[string][]string{"alias-of": {name}}
	for k, v := range canonical.Annotations {
		if k != cobra.BashCompOneRequiredFlag {
			ann[k] = v
		}
	}
	a.Annotations = ann
	fs.AddFlag(&a)
}

// flagOrAliasChanged reports whether the named flag, or any hidden alias
// of it, was set explicitly.
func flagOrAliasChanged(cmd *cobra.Command, name string) bool {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.InheritedFlags()} {
		if fs.Changed(name) {
			return true
		}
		changed := false
		fs.VisitAll(func(f *pflag.Flag) {
			if changed || !fs.Changed(f.Name) {
				return
			}
			if ann := f.Annotations["alias-of"]; len(ann) > 0 && ann[0] == name {
				changed = true
			}
		})
		if changed {
			return true
		}
	}
	return false
}

// errAlreadyHandled tells Execute's caller the message already went to
// stderr. Root has SilenceErrors set, so without this sentinel the error
// would be printed twice.
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string {
	return e.err.Error()
}

func (e *handledError) Unwrap() error {
	return errAlreadyHandled
}

func (e *handledError) ExitCode() int {
	return e.exitCode
}

// RunE wraps a command function so failures are rendered once, through
// HandleError, and still carry an exit code for main.
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), HandleError(err))
		return &handledError{err: err, exitCode: ExitCode(err)}
	}
}
