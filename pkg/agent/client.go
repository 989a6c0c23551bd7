package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/registry"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Client talks to one agent endpoint. It implements registry.Stub.
type Client struct {
	ep        state.Endpoint
	base      string
	transport *http.Transport
	http      *http.Client
}

// NewClient creates a client with its own connection pool. Closing the
// client drops the pool's idle connections.
func NewClient(ep state.Endpoint) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{
		ep:        ep,
		base:      "http://" + ep.HostPort(),
		transport: transport,
		http:      &http.Client{Transport: transport},
	}
}

// Dialer builds agent clients for the registry.
func Dialer() registry.Dialer {
	return func(ep state.Endpoint) (registry.Stub, error) {
		return NewClient(ep), nil
	}
}

// List fetches the agent's records of a kind. Filters and limit are
// applied agent-side as well; callers must still merge.
func (c *Client) List(ctx context.Context, kind state.Kind, opts state.ListOptions) ([]state.Record, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	for _, f := range opts.Filters {
		q.Add("filter_keys", f.Key)
		q.Add("filter_values", f.Value)
	}
	var body struct {
		Result []state.Record `json:"result"`
	}
	if err := c.getJSON(ctx, "/api/local/"+string(kind), q, &body); err != nil {
		return nil, err
	}
	return body.Result, nil
}

// ListLogs returns the names of the agent's log files matching glob.
func (c *Client) ListLogs(ctx context.Context, glob string) ([]string, error) {
	q := url.Values{}
	q.Set("glob", glob)
	var body struct {
		Result []string `json:"result"`
	}
	if err := c.getJSON(ctx, "/api/local/logs", q, &body); err != nil {
		return nil, err
	}
	return body.Result, nil
}

// TailLog opens a log retrieval. The caller must close the returned body;
// cancelling ctx ends a followed stream.
func (c *Client) TailLog(ctx context.Context, req state.TailRequest) (io.ReadCloser, error) {
	media := state.MediaFile
	if req.Follow {
		media = state.MediaStream
	}
	q := url.Values{}
	q.Set("filename", req.Filename)
	if req.Lines > 0 {
		q.Set("lines", strconv.Itoa(req.Lines))
	}
	if req.Interval > 0 {
		q.Set("interval", strconv.FormatFloat(req.Interval.Seconds(), 'f', -1, 64))
	}
	resp, err := c.do(ctx, "/api/local/logs/"+string(media), q)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.NewNotFoundError("log file", req.Filename)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.replyError(resp)
	}
	return resp.Body, nil
}

// Close drops idle connections to the agent.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
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
		return nil, fmt.Errorf("agent %s (%s): %w", c.ep.NodeID, c.ep.HostPort(), err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.replyError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode reply of agent %s", c.ep.NodeID)
	}
	return nil
}

func (c *Client) replyError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)
	return errors.NewAgentError(string(c.ep.NodeID), resp.StatusCode, body.Error)
}
