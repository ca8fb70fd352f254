package outfmt

import (
	"encoding/json"
	"reflect"
	"testing"
)

type testActivity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNormalizeJSONOutput_WrapsSlices(t *testing.T) {
	activities := []testActivity{{ID: "q-1", Name: "Daily Aggregation"}}
	got := normalizeJSONOutput(activities)

	wrapped, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected items envelope, got %T", got)
	}
	if !reflect.DeepEqual(wrapped["items"], activities) {
		t.Errorf("items = %#v, want %#v", wrapped["items"], activities)
	}
}

func TestNormalizeJSONOutput_NilSliceBecomesEmptyArray(t *testing.T) {
	var activities []testActivity
	got := normalizeJSONOutput(activities)

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"items":[]}` {
		t.Errorf("output = %s, want {\"items\":[]}", data)
	}
}

func TestNormalizeJSONOutput_Passthrough(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"nil", nil},
		{"map", map[string]string{"key": "DE_Subscribers"}},
		{"struct", testActivity{ID: "q-1"}},
		{"string", "done"},
		{"bytes", []byte(`[1,2]`)},
		{"raw message", json.RawMessage(`[1,2]`)},
		{"nil pointer", (*testActivity)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeJSONOutput(tt.v)
			if !reflect.DeepEqual(got, tt.v) {
				t.Errorf("normalizeJSONOutput(%#v) = %#v, want unchanged", tt.v, got)
			}
		})
	}
}

func TestNormalizeJSONOutput_PointerToSlice(t *testing.T) {
	activities := &[]testActivity{{ID: "q-2", Name: "Weekly Rollup"}}
	got := normalizeJSONOutput(activities)

	wrapped, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected items envelope, got %T", got)
	}
	if _, ok := wrapped["items"]; !ok {
		t.Error("missing items key")
	}
}
