package outfmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"text/template"
)

type templateKey struct{}

// WithTemplate stores a Go template string on the context.
func WithTemplate(ctx context.Context, tmpl string) context.Context {
	return context.WithValue(ctx, templateKey{}, tmpl)
}

// GetTemplate returns the stored template string, or "".
func GetTemplate(ctx context.Context) string {
	tmpl, _ := ctx.Value(templateKey{}).(string)
	return tmpl
}

// templateFuncs are the helpers available inside --template strings.
var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return buf.String(), nil
	},
}

// WriteTemplate renders v through a Go text/template string. Missing map
// keys render as zero values rather than erroring, since provider payloads
// omit empty fields.
func WriteTemplate(w io.Writer, v any, tmpl string) error {
	t, err := template.New("output").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return describeTemplateError("invalid template", err)
	}
	if err := t.Execute(w, v); err != nil {
		return describeTemplateError("template execution error", err)
	}
	return nil
}

var templateLocation = regexp.MustCompile(`:(\d+):(\d+):`)

// describeTemplateError surfaces the line/column text/template buries in
// its error strings.
func describeTemplateError(kind string, err error) error {
	msg := err.Error()
	if loc := templateLocation.FindStringSubmatch(msg); len(loc) == 3 {
		return fmt.Errorf("%s at line %s, column %s: %s", kind, loc[1], loc[2], msg)
	}
	return fmt.Errorf("%s: %w", kind, err)
}
