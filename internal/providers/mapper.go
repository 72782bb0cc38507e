// internal/providers/mapper.go
package providers

import (
	"regexp"
	"strconv"
)

// Helpers for walking the untyped provider payloads. Field presence is
// never assumed; every accessor degrades to a zero value.

var nonDigits = regexp.MustCompile(`\D`)

// rawResults returns the first non-empty result array found under the
// given keys.
func rawResults(data map[string]interface{}, keys ...string) []interface{} {
	for _, key := range keys {
		if arr, ok := data[key].([]interface{}); ok && len(arr) > 0 {
			return arr
		}
	}
	return nil
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// stringField returns the first non-empty string found under the given
// keys, rendering numbers as strings so position-style ids survive.
func stringField(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func nestedString(item map[string]interface{}, objKey, fieldKey string) string {
	if obj, ok := asObject(item[objKey]); ok {
		return stringField(obj, fieldKey)
	}
	return ""
}

// floatField parses a float from a number or numeric string.
func floatField(item map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			val := v
			return &val
		case string:
			if num, err := strconv.ParseFloat(v, 64); err == nil {
				return &num
			}
		}
	}
	return nil
}

// digitsField extracts an integer from a number or from the digits of a
// string such as "1,024 reviews" or "2 pieces".
func digitsField(item map[string]interface{}, keys ...string) *int {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			val := int(v)
			return &val
		case string:
			digits := nonDigits.ReplaceAllString(v, "")
			if digits == "" {
				continue
			}
			if val, err := strconv.Atoi(digits); err == nil {
				return &val
			}
		}
	}
	return nil
}

func boolField(item map[string]interface{}, keys ...string) *bool {
	for _, key := range keys {
		if v, ok := item[key].(bool); ok {
			val := v
			return &val
		}
	}
	return nil
}

func titleField(item map[string]interface{}) string {
	if title := stringField(item, "title"); title != "" {
		return title
	}
	return "Untitled"
}

func capLen(raw []interface{}, limit int) int {
	if limit > 0 && len(raw) > limit {
		return limit
	}
	return len(raw)
}
