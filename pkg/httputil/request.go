package httputil

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryParam returns the value of a query parameter, or defaultValue if not present.
func QueryParam(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

// Int parses an integer query value strictly. An absent or empty key
// yields defaultValue; a present but non-numeric value is an error.
func Int(q url.Values, key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return i, nil
}

// Float parses a floating point query value strictly. ok is false when
// the key is absent.
func Float(q url.Values, key string) (f float64, ok bool, err error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, false, nil
	}
	f, err = strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, true, nil
}

// All returns every value of a repeated query parameter in request order.
// Missing keys yield an empty, non-nil slice.
func All(q url.Values, key string) []string {
	vals := q[key]
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}
