package outfmt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithQuery(t *testing.T) {
	ctx := context.Background()
	if got := GetQuery(ctx); got != "" {
		t.Errorf("default query = %q, want empty", got)
	}
	ctx = WithQuery(ctx, ".items[].name")
	if got := GetQuery(ctx); got != ".items[].name" {
		t.Errorf("query = %q", got)
	}
}

func TestWriteJSONFiltered_NoQuery(t *testing.T) {
	activities := []testActivity{{ID: "q-1", Name: "Daily Aggregation"}}

	var buf bytes.Buffer
	if err := WriteJSONFiltered(&buf, activities, "", false); err != nil {
		t.Fatalf("WriteJSONFiltered: %v", err)
	}

	var out struct {
		Items []testActivity `json:"items"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "q-1" {
		t.Errorf("items = %#v", out.Items)
	}
}

func TestWriteJSONFiltered_WithQuery(t *testing.T) {
	activities := []testActivity{
		{ID: "q-1", Name: "Daily Aggregation"},
		{ID: "q-2", Name: "Weekly Rollup"},
	}

	var buf bytes.Buffer
	if err := WriteJSONFiltered(&buf, activities, ".items[].name", false); err != nil {
		t.Fatalf("WriteJSONFiltered: %v", err)
	}

	got := strings.TrimSpace(buf.String())
	want := "[\n  \"Daily Aggregation\",\n  \"Weekly Rollup\"\n]"
	if got != want {
		t.Errorf("filtered output = %q, want %q", got, want)
	}
}

func TestWriteJSONFiltered_BadQuery(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSONFiltered(&buf, map[string]string{"id": "q-1"}, ".[[", false)
	if err == nil {
		t.Fatal("expected error for malformed query")
	}
}

func TestApplyQuery_EmptyQueryUsesJSONNames(t *testing.T) {
	activity := testActivity{ID: "q-1", Name: "Daily Aggregation"}

	got, err := ApplyQuery(activity, "")
	if err != nil {
		t.Fatalf("ApplyQuery: %v", err)
	}

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map after round-trip, got %T", got)
	}
	if m["name"] != "Daily Aggregation" {
		t.Errorf(`m["name"] = %v, want "Daily Aggregation"`, m["name"])
	}
	if _, ok := m["Name"]; ok {
		t.Error("struct field name leaked past JSON round-trip")
	}
}

func TestApplyQuery_ExtractsField(t *testing.T) {
	activities := []testActivity{{ID: "q-1", Name: "Daily Aggregation"}}

	got, err := ApplyQuery(activities, ".items[0].id")
	if err != nil {
		t.Fatalf("ApplyQuery: %v", err)
	}
	if got != "q-1" {
		t.Errorf("ApplyQuery = %v, want q-1", got)
	}
}
