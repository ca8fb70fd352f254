// Package outfmt renders command output as text tables or jq-filterable
// JSON. The selected mode, compactness, jq query, and template all ride
// on the command context so services and renderers never need flag
// plumbing.
package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Mode selects how command output is rendered.
type Mode int

const (
	Text  Mode = iota // human-readable tables and prose
	JSON              // one indented JSON document
	JSONL             // newline-delimited JSON
)

func (m Mode) String() string {
	switch m {
	case JSON:
		return "json"
	case JSONL:
		return "jsonl"
	default:
		return "text"
	}
}

// Parse maps an output format flag value to a Mode. "ndjson" is accepted
// as a synonym for jsonl.
func Parse(s string) (Mode, error) {
	switch s {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	}
	return Text, fmt.Errorf("invalid output format: %q (use 'text', 'json', 'jsonl', or 'ndjson')", s)
}

type (
	modeKey    struct{}
	compactKey struct{}
)

// WithMode stores the output mode on the context.
func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, mode)
}

// ModeFromContext returns the stored mode, defaulting to Text.
func ModeFromContext(ctx context.Context) Mode {
	mode, _ := ctx.Value(modeKey{}).(Mode)
	return mode
}

// IsJSON reports whether the context asks for structured output
// (json or jsonl).
func IsJSON(ctx context.Context) bool {
	mode := ModeFromContext(ctx)
	return mode == JSON || mode == JSONL
}

// IsJSONL reports whether the context asks for newline-delimited JSON.
func IsJSONL(ctx context.Context) bool {
	return ModeFromContext(ctx) == JSONL
}

// WithCompact stores the compact-JSON preference on the context.
func WithCompact(ctx context.Context, compact bool) context.Context {
	return context.WithValue(ctx, compactKey{}, compact)
}

// IsCompact reports whether compact JSON output was requested.
func IsCompact(ctx context.Context) bool {
	compact, _ := ctx.Value(compactKey{}).(bool)
	return compact
}

// WriteJSON writes v as indented JSON with a trailing newline.
func WriteJSON(w io.Writer, v any) error {
	return WriteJSONMaybeCompact(w, v, false)
}

// WriteJSONMaybeCompact writes v as JSON, single-line when compact.
func WriteJSONMaybeCompact(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
