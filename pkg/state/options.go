package state

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/httputil"
)

const (
	// DefaultLimit caps list results when the client gives no limit.
	DefaultLimit = 100
	// DefaultRPCTimeout bounds each per-node call when the client gives no timeout.
	DefaultRPCTimeout = 30 * time.Second
	// DefaultLogLines is how many trailing lines a log retrieval returns.
	DefaultLogLines = 1000
	// DefaultLogGlob matches every log file.
	DefaultLogGlob = "*"
)

// MediaType selects bounded (file) or live (stream) log delivery.
type MediaType string

const (
	MediaFile   MediaType = "file"
	MediaStream MediaType = "stream"
)

// Filter is one equality predicate on a record field.
type Filter struct {
	Key   string
	Value string
}

// ListOptions are the per-request parameters of a list query.
type ListOptions struct {
	Limit   int
	Timeout time.Duration
	Filters []Filter
}

// LogOptions are the per-request parameters of a log retrieval.
type LogOptions struct {
	Timeout   time.Duration
	NodeID    NodeID
	NodeIP    string
	MediaType MediaType
	Filename  string
	ActorID   string
	TaskID    string
	PID       string
	Lines     int
	Interval  time.Duration
}

// ParseListOptions reads limit, timeout (whole seconds) and the repeated
// filter_keys/filter_values pairs from a query string.
func ParseListOptions(q url.Values) (ListOptions, error) {
	limit, err := httputil.Int(q, "limit", DefaultLimit)
	if err != nil {
		return ListOptions{}, errors.NewValidationError("limit", err.Error(), q.Get("limit"))
	}
	if limit < 0 {
		return ListOptions{}, errors.NewValidationError("limit", "must not be negative", limit)
	}
	timeout, err := parseTimeout(q)
	if err != nil {
		return ListOptions{}, err
	}

	keys := httputil.All(q, "filter_keys")
	values := httputil.All(q, "filter_values")
	if len(keys) != len(values) {
		return ListOptions{}, errors.NewValidationError("filter_keys",
			fmt.Sprintf("got %d filter keys and %d filter values; they must be given in pairs", len(keys), len(values)),
			nil)
	}
	filters := make([]Filter, len(keys))
	for i := range keys {
		filters[i] = Filter{Key: keys[i], Value: values[i]}
	}

	return ListOptions{Limit: limit, Timeout: timeout, Filters: filters}, nil
}

// ParseLogOptions reads the log retrieval parameters. mediaType is the path
// segment of the request; empty means file.
func ParseLogOptions(q url.Values, mediaType string) (LogOptions, error) {
	timeout, err := parseTimeout(q)
	if err != nil {
		return LogOptions{}, err
	}

	mt := MediaType(strings.ToLower(strings.TrimSpace(mediaType)))
	if mt == "" {
		mt = MediaFile
	}
	if mt != MediaFile && mt != MediaStream {
		return LogOptions{}, errors.NewValidationError("media_type",
			fmt.Sprintf("unsupported media type %q, expected file or stream", mediaType), mediaType)
	}

	lines, err := httputil.Int(q, "lines", DefaultLogLines)
	if err != nil {
		return LogOptions{}, errors.NewValidationError("lines", err.Error(), q.Get("lines"))
	}
	if lines < 1 {
		return LogOptions{}, errors.NewValidationError("lines", "must be at least 1", lines)
	}

	pid := strings.TrimSpace(q.Get("pid"))
	if pid != "" && !ValidPID(pid) {
		return LogOptions{}, errors.NewValidationError("pid", "must be a positive integer", pid)
	}

	var interval time.Duration
	secs, ok, err := httputil.Float(q, "interval")
	if err != nil {
		return LogOptions{}, errors.NewValidationError("interval", err.Error(), q.Get("interval"))
	}
	if ok {
		if secs <= 0 {
			return LogOptions{}, errors.NewValidationError("interval", "must be positive", secs)
		}
		interval = time.Duration(secs * float64(time.Second))
	}

	return LogOptions{
		Timeout:   timeout,
		NodeID:    NodeID(strings.TrimSpace(q.Get("node_id"))),
		NodeIP:    strings.TrimSpace(q.Get("node_ip")),
		MediaType: mt,
		Filename:  q.Get("filename"),
		ActorID:   q.Get("actor_id"),
		TaskID:    q.Get("task_id"),
		PID:       pid,
		Lines:     lines,
		Interval:  interval,
	}, nil
}

// ParseLogListOptions reads the parameters of a log listing: the node
// selector and the timeout. Retrieval-only parameters are ignored.
func ParseLogListOptions(q url.Values) (LogOptions, error) {
	timeout, err := parseTimeout(q)
	if err != nil {
		return LogOptions{}, err
	}
	return LogOptions{
		Timeout: timeout,
		NodeID:  NodeID(strings.TrimSpace(q.Get("node_id"))),
		NodeIP:  strings.TrimSpace(q.Get("node_ip")),
	}, nil
}

// ValidPID reports whether s is a positive decimal process id.
func ValidPID(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && strconv.Itoa(n) == s
}

func parseTimeout(q url.Values) (time.Duration, error) {
	secs, err := httputil.Int(q, "timeout", 0)
	if err != nil {
		return 0, errors.NewValidationError("timeout", err.Error(), q.Get("timeout"))
	}
	if secs < 0 {
		return 0, errors.NewValidationError("timeout", "must not be negative", secs)
	}
	if secs == 0 {
		return DefaultRPCTimeout, nil
	}
	return time.Duration(secs) * time.Second, nil
}
