package telegram

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Helpers for reading the loosely typed update maps produced by
// encoding/json. Every read degrades to a zero value: a missing or
// mistyped field is never an error during conversion.

// subMap returns the nested object under key, or nil.
func subMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// strField returns the string under key, or "".
func strField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// intField returns the integer under key, or 0. JSON numbers decode as
// float64; json.Number is handled for callers that use a decoder.
func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// sliceField returns the array under key, or nil.
func sliceField(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

// idString renders an identifier field as a string: numeric ids become
// decimal strings, strings pass through, anything else (including a
// missing field) becomes "".
func idString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	}
	return ""
}

// sortedKeys returns the map's keys in lexical order. Go map iteration is
// randomized; anything that picks "the first key" must sort first to stay
// deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
