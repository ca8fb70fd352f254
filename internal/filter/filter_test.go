// internal/filter/filter_test.go
package filter

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestApplyEmptyExpression(t *testing.T) {
	data := map[string]interface{}{"name": "q1"}
	result, err := Apply(data, "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("empty expression should return input unchanged, got %v", result)
	}
}

func TestApplyFieldAccess(t *testing.T) {
	data := map[string]interface{}{
		"queryDefinitionId": "abc-123",
		"name":              "weekly sync",
	}
	result, err := Apply(data, ".name")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result != "weekly sync" {
		t.Errorf("result = %v, want weekly sync", result)
	}
}

func TestApplyMultipleResults(t *testing.T) {
	data := []interface{}{
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": "b"},
	}
	result, err := Apply(data, ".[].id")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, ok := result.([]interface{})
	if !ok {
		t.Fatalf("result type %T, want slice", result)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("result = %v", got)
	}
}

func TestApplyInvalidExpression(t *testing.T) {
	_, err := Apply(map[string]interface{}{}, ".[")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "invalid filter expression") {
		t.Errorf("error = %v", err)
	}
}

func TestApplyShellEscapedBang(t *testing.T) {
	data := []interface{}{
		map[string]interface{}{"status": "OK"},
		map[string]interface{}{"status": "Error"},
	}
	result, err := Apply(data, `[.[] | select(.status \!= "OK")]`)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, ok := result.([]interface{})
	if !ok || len(got) != 1 {
		t.Fatalf("result = %v", result)
	}
}

func TestApplyItemsFallback(t *testing.T) {
	// List output is wrapped as {"items": [...]}; root-array queries
	// should transparently run against the items array.
	data := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"key": "DE_One"},
			map[string]interface{}{"key": "DE_Two"},
		},
	}
	result, err := Apply(data, ".[].key")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, ok := result.([]interface{})
	if !ok || len(got) != 2 {
		t.Fatalf("result = %v", result)
	}
	if got[0] != "DE_One" || got[1] != "DE_Two" {
		t.Errorf("result = %v", got)
	}
}

func TestApplyToJSON(t *testing.T) {
	in := []byte(`{"rows": [{"Email": "a@example.com"}]}`)
	out, err := ApplyToJSON(in, ".rows[0].Email")
	if err != nil {
		t.Fatalf("ApplyToJSON: %v", err)
	}
	var got string
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if got != "a@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestApplyToJSONEmptyExpressionPassthrough(t *testing.T) {
	in := []byte(`{"a":1}`)
	out, err := ApplyToJSON(in, "")
	if err != nil {
		t.Fatalf("ApplyToJSON: %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("passthrough altered bytes: %q", out)
	}
}

func TestApplyFromJSONInvalidJSON(t *testing.T) {
	if _, err := ApplyFromJSON([]byte("{nope"), "."); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestApplyFilterRuntimeError(t *testing.T) {
	_, err := Apply("just a string", ".foo")
	if err == nil {
		t.Fatal("expected runtime filter error")
	}
	if !strings.Contains(err.Error(), "filter error") {
		t.Errorf("error = %v", err)
	}
}
