package state

import (
	"fmt"
	"strconv"
)

// ID returns the record's identifier for the given kind.
func (r Record) ID(kind Kind) string {
	return str(r[kind.IDKey()])
}

// Field renders a field as a string for equality filtering. Missing fields
// render as the empty string.
func (r Record) Field(key string) string {
	return str(r[key])
}

// Matches reports whether the record satisfies every filter.
func (r Record) Matches(filters []Filter) bool {
	for _, f := range filters {
		if r.Field(f.Key) != f.Value {
			return false
		}
	}
	return true
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case NodeID:
		return string(t)
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func int64Of(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
