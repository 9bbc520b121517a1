package storage

import (
	"encoding/json"
)

// Value kinds compared by the cleaner. Maps, slices and nil are all objects.
const (
	kindString  = "string"
	kindNumber  = "number"
	kindBoolean = "boolean"
	kindObject  = "object"
	kindUnknown = "undefined"
)

// Clean returns a copy of object shaped like template:
//   - keys not in template are dropped,
//   - keys missing from object take the template value,
//   - values whose kind differs from the template value's kind are reset,
//   - nested objects and arrays are cleaned recursively.
//
// Arrays are cleaned against the first element of the template array. An
// empty user array takes the template array, an empty template array yields
// an empty array. Template values are deep-copied, so the result never
// shares maps or slices with template.
func Clean(object, template map[string]any) map[string]any {
	result := make(map[string]any, len(template))

	for key, def := range template {
		val, ok := object[key]
		if !ok {
			result[key] = clone(def)
			continue
		}

		switch def := def.(type) {
		case map[string]any:
			if nested, ok := val.(map[string]any); ok {
				result[key] = Clean(nested, def)
			} else {
				result[key] = clone(def)
			}
		case []any:
			if arr, ok := val.([]any); ok && len(arr) > 0 {
				result[key] = cleanArray(arr, def)
			} else {
				result[key] = clone(def)
			}
		default:
			if kindOf(val) == kindOf(def) {
				result[key] = clone(val)
			} else {
				result[key] = clone(def)
			}
		}
	}

	return result
}

func cleanArray(arr, template []any) []any {
	if len(template) == 0 {
		return []any{}
	}

	item := template[0]
	if itemTemplate, ok := item.(map[string]any); ok {
		out := make([]any, len(arr))
		for i, v := range arr {
			if obj, ok := v.(map[string]any); ok {
				out[i] = Clean(obj, itemTemplate)
			} else {
				out[i] = clone(item)
			}
		}

		return out
	}

	want := kindOf(item)
	for _, v := range arr {
		if kindOf(v) != want {
			return clone(template).([]any)
		}
	}

	return clone(arr).([]any)
}

// kindOf classifies v the way JSON-script typeof does: null, arrays and
// objects all report "object".
func kindOf(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return kindObject
	case string:
		return kindString
	case bool:
		return kindBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return kindNumber
	default:
		return kindUnknown
	}
}

func clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = clone(e)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = clone(e)
		}

		return out
	default:
		return v
	}
}
