package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Envelope is the head's reply to list and log listing queries.
type Envelope struct {
	Success               bool            `json:"success"`
	Message               string          `json:"message"`
	Result                json.RawMessage `json:"result"`
	PartialFailureWarning *string         `json:"partial_failure_warning"`
}

// HeadClient calls a head's query endpoints.
type HeadClient struct {
	base string
	http *http.Client
}

// NewHeadClient creates a client for the head at address, e.g.
// http://localhost:8265. A bare host:port gets the http scheme.
func NewHeadClient(address string) *HeadClient {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &HeadClient{base: address + "/api/v0", http: &http.Client{}}
}

// ListParams are the query options of a list call.
type ListParams struct {
	Limit   int
	Timeout time.Duration
	Filters [][2]string
}

// List fetches the envelope of one entity kind.
func (c *HeadClient) List(ctx context.Context, kind string, p ListParams) (*Envelope, error) {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	setTimeout(q, p.Timeout)
	for _, f := range p.Filters {
		q.Add("filter_keys", f[0])
		q.Add("filter_values", f[1])
	}
	return c.envelope(ctx, "/"+kind, q)
}

// LogTarget selects a node and, for retrieval, a file.
type LogTarget struct {
	NodeID   string
	NodeIP   string
	Filename string
	ActorID  string
	PID      string
	Timeout  time.Duration
}

func (t LogTarget) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("node_id", t.NodeID)
	set("node_ip", t.NodeIP)
	set("filename", t.Filename)
	set("actor_id", t.ActorID)
	set("pid", t.PID)
	setTimeout(q, t.Timeout)
	return q
}

// ListLogs fetches the log file names of a node matching glob.
func (c *HeadClient) ListLogs(ctx context.Context, t LogTarget, glob string) (*Envelope, error) {
	q := t.query()
	if glob != "" {
		q.Set("glob", glob)
	}
	return c.envelope(ctx, "/logs", q)
}

// StreamLog copies a log retrieval to w until the head closes it or ctx
// ends. Follow selects stream mode.
func (c *HeadClient) StreamLog(ctx context.Context, t LogTarget, lines int, follow bool, w io.Writer) error {
	q := t.query()
	if lines > 0 {
		q.Set("lines", strconv.Itoa(lines))
	}
	media := "file"
	if follow {
		media = "stream"
	}
	resp, err := c.get(ctx, "/logs/"+media, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Resolution failures come back as an envelope instead of a stream.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var env Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("decode reply: %w", err)
		}
		return fmt.Errorf("%s", env.Message)
	}
	if _, err := io.Copy(w, resp.Body); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Health fetches the head's health document.
func (c *HeadClient) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.get(ctx, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("head replied %s", resp.Status)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}

func (c *HeadClient) envelope(ctx context.Context, path string, q url.Values) (*Envelope, error) {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("head replied %s: %w", resp.Status, err)
	}
	if !env.Success {
		return &env, fmt.Errorf("%s", env.Message)
	}
	return &env, nil
}

func (c *HeadClient) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the head at %s: %w", c.base, err)
	}
	return resp, nil
}

func setTimeout(q url.Values, d time.Duration) {
	if d > 0 {
		secs := int(d.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("timeout", strconv.Itoa(secs))
	}
}
