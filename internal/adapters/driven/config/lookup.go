// Package config converts raw configuration values into the types the
// settings layer asks for. Both the file and the in-memory stores decode into
// map[string]any and share these conversions.
package config

import "strings"

// Lookup reads one raw value by its dot-notation key.
type Lookup func(key string) (any, bool)

// String returns the value when it is a string.
func (l Lookup) String(key string) string {
	val, _ := l(key)
	str, _ := val.(string)
	return str
}

// Int returns integer values. TOML decodes integers as int64 and YAML as
// int; a float is accepted only when it has no fractional part.
func (l Lookup) Int(key string) int {
	val, _ := l(key)
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return 0
}

// Float returns any numeric value as float64, so "rate = 1" and
// "rate = 1.0" read the same.
func (l Lookup) Float(key string) float64 {
	val, _ := l(key)
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the value when it is a boolean.
func (l Lookup) Bool(key string) bool {
	val, _ := l(key)
	b, _ := val.(bool)
	return b
}

// StringSlice returns list values. A comma-separated string is split, which
// lets environment-style values like ".md,.txt" work in either format.
func (l Lookup) StringSlice(key string) []string {
	val, _ := l(key)
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}
