// Package filter applies jq expressions to command output via gojq.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// NormalizeExpression fixes shell-escaped operators in jq expressions.
// Zsh escapes ! to \! even in single quotes, breaking operators like !=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Apply runs a jq expression over data. An empty expression is the
// identity. A single jq result is returned bare; several become a slice.
func Apply(data any, expression string) (any, error) {
	if expression == "" {
		return data, nil
	}

	query, err := gojq.Parse(NormalizeExpression(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	results, err := run(query, data)
	if err != nil {
		// List output is wrapped as {"items": [...]}. When a root-array
		// query trips over the wrapper, retry against the items array so
		// `.[]`-style filters keep working.
		items, retry := unwrapItems(data, expression, err)
		if !retry {
			return nil, err
		}
		if results, err = run(query, items); err != nil {
			return nil, err
		}
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func run(query *gojq.Query, data any) ([]any, error) {
	var results []any
	iter := query.Run(data)
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
}

func unwrapItems(data any, expression string, runErr error) (any, bool) {
	if !rootArrayQuery(expression) {
		return nil, false
	}
	if !strings.Contains(runErr.Error(), "expected an object but got: array") {
		return nil, false
	}
	wrapper, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	items, ok := wrapper["items"].([]any)
	if !ok {
		return nil, false
	}
	return items, true
}

func rootArrayQuery(expression string) bool {
	expr := strings.TrimSpace(expression)
	return strings.HasPrefix(expr, ".[]") || strings.HasPrefix(expr, "[.[]") || strings.HasPrefix(expr, "(.[]")
}

// ApplyToJSON filters JSON bytes and returns pretty-printed JSON bytes.
// An empty expression returns the input unmodified.
func ApplyToJSON(jsonData []byte, expression string) ([]byte, error) {
	if expression == "" {
		return jsonData, nil
	}
	result, err := ApplyFromJSON(jsonData, expression)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(result, "", "  ")
}

// ApplyFromJSON filters JSON bytes and returns the result as a Go value
// for the caller to format.
func ApplyFromJSON(jsonData []byte, expression string) (any, error) {
	var data any
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Apply(data, expression)
}
