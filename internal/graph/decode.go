package graph

import (
	"strconv"
)

// Result values arrive as int, int64, float64, string, []byte, bool,
// []interface{} or nil depending on the reply type.

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(x), 64)
		return f
	}
	return 0
}

func asFloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case float64, float32, int, int64:
	case string, []byte:
		if asString(v) == "" {
			return nil
		}
	default:
		return nil
	}
	f := asFloat(v)
	return &f
}

func asBool(v any, fallback bool) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}
	return fallback
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	}
	return nil
}
