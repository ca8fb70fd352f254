package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithTemplate(t *testing.T) {
	ctx := context.Background()
	if got := GetTemplate(ctx); got != "" {
		t.Errorf("default template = %q, want empty", got)
	}
	ctx = WithTemplate(ctx, "{{.name}}")
	if got := GetTemplate(ctx); got != "{{.name}}" {
		t.Errorf("template = %q", got)
	}
}

func TestWriteTemplate(t *testing.T) {
	activity := map[string]any{"id": "q-1", "name": "Daily Aggregation"}

	var buf bytes.Buffer
	if err := WriteTemplate(&buf, activity, "{{.name}} ({{.id}})"); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if got := buf.String(); got != "Daily Aggregation (q-1)" {
		t.Errorf("output = %q", got)
	}
}

func TestWriteTemplate_JSONFunc(t *testing.T) {
	activity := map[string]any{"name": "Daily Aggregation"}

	var buf bytes.Buffer
	if err := WriteTemplate(&buf, activity, "{{json .}}"); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, `"name": "Daily Aggregation"`) {
		t.Errorf("output = %q, want indented JSON", got)
	}
}

func TestWriteTemplate_MissingKeyRendersZero(t *testing.T) {
	row := map[string]any{"SubscriberKey": "s-100"}

	var buf bytes.Buffer
	if err := WriteTemplate(&buf, row, "{{.SubscriberKey}}:{{.EmailAddress}}"); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "s-100:") {
		t.Errorf("output = %q", got)
	}
}

func TestWriteTemplate_ParseError(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTemplate(&buf, nil, "{{.name")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "invalid template") {
		t.Errorf("error = %q", err)
	}
}

func TestWriteTemplate_ExecErrorIncludesLocation(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTemplate(&buf, map[string]any{}, `{{call .missing}}`)
	if err == nil {
		t.Fatal("expected execution error")
	}
	if !strings.Contains(err.Error(), "template execution error at line") {
		t.Errorf("error = %q, want line/column description", err)
	}
}
