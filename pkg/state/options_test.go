package state

import (
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
)

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	q, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	return q
}

func TestParseListOptions(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    ListOptions
		wantErr bool
	}{
		{
			name:  "defaults with empty filters",
			query: "",
			want:  ListOptions{Limit: DefaultLimit, Timeout: DefaultRPCTimeout, Filters: []Filter{}},
		},
		{
			name:  "explicit limit and timeout",
			query: "limit=5&timeout=3",
			want:  ListOptions{Limit: 5, Timeout: 3 * time.Second, Filters: []Filter{}},
		},
		{
			name:  "filters keep pairing order",
			query: "filter_keys=state&filter_values=ALIVE&filter_keys=name&filter_values=w1",
			want: ListOptions{
				Limit:   DefaultLimit,
				Timeout: DefaultRPCTimeout,
				Filters: []Filter{{Key: "state", Value: "ALIVE"}, {Key: "name", Value: "w1"}},
			},
		},
		{name: "more keys than values", query: "filter_keys=a&filter_keys=b&filter_values=1", wantErr: true},
		{name: "value without key", query: "filter_values=1", wantErr: true},
		{name: "non numeric limit", query: "limit=ten", wantErr: true},
		{name: "non numeric timeout", query: "timeout=1s", wantErr: true},
		{name: "negative limit", query: "limit=-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListOptions(mustQuery(t, tt.query))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseListOptions() = %+v, want error", got)
				}
				if !errors.IsValidation(err) {
					t.Errorf("ParseListOptions() error = %T, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseListOptions() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseListOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLogOptions(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		mediaType string
		check     func(t *testing.T, o LogOptions)
		wantErr   bool
	}{
		{
			name:  "defaults",
			query: "node_id=n1&filename=raylet.out",
			check: func(t *testing.T, o LogOptions) {
				if o.MediaType != MediaFile || o.Lines != DefaultLogLines || o.Timeout != DefaultRPCTimeout {
					t.Errorf("unexpected defaults %+v", o)
				}
				if o.NodeID != "n1" || o.Filename != "raylet.out" || o.Interval != 0 {
					t.Errorf("unexpected fields %+v", o)
				}
			},
		},
		{
			name:      "stream with interval",
			query:     "node_ip=10.0.0.2&lines=10&interval=0.25&pid=42&timeout=5",
			mediaType: "stream",
			check: func(t *testing.T, o LogOptions) {
				if o.MediaType != MediaStream || o.Lines != 10 || o.PID != "42" {
					t.Errorf("unexpected fields %+v", o)
				}
				if o.Interval != 250*time.Millisecond || o.Timeout != 5*time.Second {
					t.Errorf("interval=%v timeout=%v", o.Interval, o.Timeout)
				}
				if o.NodeIP != "10.0.0.2" {
					t.Errorf("NodeIP = %q", o.NodeIP)
				}
			},
		},
		{name: "unknown media type", mediaType: "video", wantErr: true},
		{name: "bad lines", query: "lines=all", wantErr: true},
		{name: "zero lines", query: "lines=0", wantErr: true},
		{name: "negative lines", query: "lines=-1", wantErr: true},
		{name: "wildcard pid", query: "pid=*", wantErr: true},
		{name: "negative pid", query: "pid=-4", wantErr: true},
		{name: "padded pid", query: "pid=042", wantErr: true},
		{name: "bad interval", query: "interval=soon", wantErr: true},
		{name: "zero interval", query: "interval=0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogOptions(mustQuery(t, tt.query), tt.mediaType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLogOptions() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLogOptions() error = %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestParseLogListOptions(t *testing.T) {
	o, err := ParseLogListOptions(mustQuery(t, "node_ip=10.0.0.2&timeout=3&lines=abc&interval=x&pid=*"))
	if err != nil {
		t.Fatalf("ParseLogListOptions() error = %v", err)
	}
	if o.NodeIP != "10.0.0.2" || o.Timeout != 3*time.Second {
		t.Errorf("unexpected options %+v", o)
	}

	if _, err := ParseLogListOptions(mustQuery(t, "node_id=n1&timeout=soon")); err == nil {
		t.Error("expected an error for a non-numeric timeout")
	}
}
