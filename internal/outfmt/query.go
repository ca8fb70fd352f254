package outfmt

import (
	"context"
	"encoding/json"
	"io"

	"github.com/queryforge/queryforge-cli/internal/filter"
)

type queryKey struct{}

// WithQuery stores a jq query on the context.
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// GetQuery returns the stored jq query, or "".
func GetQuery(ctx context.Context) string {
	q, _ := ctx.Value(queryKey{}).(string)
	return q
}

// WriteJSONFiltered writes v as JSON, optionally filtered through a jq
// query first. Values round-trip through encoding/json before filtering
// so struct tags decide the field names jq sees.
func WriteJSONFiltered(w io.Writer, v any, query string, compact bool) error {
	v = normalizeJSONOutput(v)
	if query == "" {
		return WriteJSONMaybeCompact(w, v, compact)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	result, err := filter.ApplyFromJSON(data, query)
	if err != nil {
		return err
	}
	return WriteJSONMaybeCompact(w, result, compact)
}

// ApplyQuery filters structured data through a jq query and returns the
// filtered value, for callers that render the result themselves
// (template output).
func ApplyQuery(v any, query string) (any, error) {
	v = normalizeJSONOutput(v)

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if query == "" {
		err = json.Unmarshal(data, &out)
		return out, err
	}
	return filter.ApplyFromJSON(data, query)
}
