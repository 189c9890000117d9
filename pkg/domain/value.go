package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Node data is a closed JSON value model: map[string]any, []any, string,
// bool, nil and numbers. Numbers may arrive as float64 (encoding/json),
// json.Number (strict decoders) or Go integers (builders and tests); the
// helpers below treat all of them as the same numeric value.

// CloneValue returns a deep copy of a JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	default:
		return t
	}
}

// CloneMap returns a deep copy of a JSON object. A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// EqualValues reports whether two JSON values are structurally equal.
// Object key order is irrelevant, array order is significant.
func EqualValues(a, b any) bool {
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}

	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, exists := tb[k]
			if !exists || !EqualValues(va, vb) {
				return false
			}
		}
		return true
	case []any:
		tb := asSlice(b)
		if tb == nil || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !EqualValues(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case []string:
		return EqualValues(CloneValue(ta), b)
	default:
		return false
	}
}

// EqualMaps compares two JSON objects, treating nil and empty as equal.
func EqualMaps(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return EqualValues(a, b)
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		return CloneValue(t).([]any)
	default:
		return nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	default:
		return 0, false
	}
}

// String returns v when it is a string, otherwise "".
func String(v any) string {
	s, _ := v.(string)
	return s
}

// MergeData deep-merges overlay over base and returns a new object.
// Nested objects merge recursively; any other overlay value replaces the
// base value for that key.
func MergeData(base, overlay map[string]any) map[string]any {
	out := CloneMap(base)
	if out == nil {
		out = make(map[string]any, len(overlay))
	}
	for k, ov := range overlay {
		om, overlayIsMap := ov.(map[string]any)
		bm, baseIsMap := out[k].(map[string]any)
		if overlayIsMap && baseIsMap {
			out[k] = MergeData(bm, om)
			continue
		}
		out[k] = CloneValue(ov)
	}
	return out
}
