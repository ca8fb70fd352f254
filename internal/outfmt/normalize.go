package outfmt

import (
	"encoding/json"
	"reflect"
)

// normalizeJSONOutput shapes values for JSON rendering: bare slices are
// wrapped as {"items": [...]} so list output always has the same envelope,
// and nil slices become empty arrays instead of null (null breaks jq
// `.items[]`). Byte slices and raw JSON pass through untouched.
func normalizeJSONOutput(v any) any {
	if v == nil {
		return v
	}
	switch v.(type) {
	case []byte, json.RawMessage:
		return v
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return v
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return v
	}

	items := rv.Interface()
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		items = []any{}
	}
	return map[string]any{"items": items}
}
