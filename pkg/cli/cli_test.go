package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, srv *httptest.Server, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--address", srv.URL))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func headStub(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonReply(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestList_Table(t *testing.T) {
	var query string
	srv := headStub(t, map[string]func(http.ResponseWriter, *http.Request){
		"/api/v0/actors": func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.RawQuery
			jsonReply(`{"success":true,"message":"","result":{
				"a2":{"actor_id":"a2","state":"DEAD","node_id":"n2","pid":7},
				"a1":{"actor_id":"a1","state":"ALIVE","node_id":"n1","pid":42,"extra":"x"}
			},"partial_failure_warning":"Failed to query 1 of 3 nodes: n3."}`)(w, r)
		},
	})

	out, errOut, err := run(t, srv, "list", "actors", "--filter", "state=ALIVE", "--limit", "5", "--timeout", "3s")
	require.NoError(t, err)
	assert.Contains(t, query, "filter_keys=state")
	assert.Contains(t, query, "filter_values=ALIVE")
	assert.Contains(t, query, "limit=5")
	assert.Contains(t, query, "timeout=3")

	assert.Contains(t, out, "actor_id")
	assert.Contains(t, out, "ALIVE")
	assert.Contains(t, out, "42")
	assert.NotContains(t, out, "extra")
	assert.Less(t, strings.Index(out, "a1"), strings.Index(out, "a2"))
	assert.Contains(t, errOut, "Failed to query 1 of 3 nodes: n3.")

	out, _, err = run(t, srv, "list", "actors", "--wide")
	require.NoError(t, err)
	assert.Contains(t, out, "extra")
}

func TestList_JSONAndErrors(t *testing.T) {
	srv := headStub(t, map[string]func(http.ResponseWriter, *http.Request){
		"/api/v0/runtime_envs": jsonReply(`{"success":true,"message":"","result":[{"node_id":"n1","runtime_env":"{}","ref_cnt":1}],"partial_failure_warning":null}`),
		"/api/v0/nodes":        jsonReply(`{"success":false,"message":"failed to query the data source control plane: connection refused","result":null,"partial_failure_warning":null}`),
		"/api/v0/tasks":        jsonReply(`{"success":true,"message":"","result":{},"partial_failure_warning":null}`),
	})

	out, _, err := run(t, srv, "list", "runtime_envs", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"ref_cnt": 1`)

	_, _, err = run(t, srv, "list", "nodes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	out, _, err = run(t, srv, "list", "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found")

	_, _, err = run(t, srv, "list", "gadgets")
	assert.Error(t, err)

	_, _, err = run(t, srv, "list", "actors", "--filter", "novalue")
	assert.Error(t, err)
}

func TestLogs(t *testing.T) {
	var streamQuery string
	srv := headStub(t, map[string]func(http.ResponseWriter, *http.Request){
		"/api/v0/logs": jsonReply(`{"success":true,"message":"","result":["worker-b-7.out","raylet.out"],"partial_failure_warning":null}`),
		"/api/v0/logs/stream": func(w http.ResponseWriter, r *http.Request) {
			streamQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("line 1\nline 2\n"))
		},
		"/api/v0/logs/file": jsonReply(`{"success":false,"message":"Cannot find matching node_id for a given node ip 10.0.0.9","result":null,"partial_failure_warning":null}`),
	})

	out, _, err := run(t, srv, "logs", "--node-id", "n1")
	require.NoError(t, err)
	assert.Equal(t, "raylet.out\nworker-b-7.out\n", out)

	out, _, err = run(t, srv, "logs", "raylet.out", "--node-id", "n1", "--follow", "-n", "20")
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", out)
	assert.Contains(t, streamQuery, "filename=raylet.out")
	assert.Contains(t, streamQuery, "lines=20")

	_, _, err = run(t, srv, "logs", "--node-ip", "10.0.0.9", "--pid", "42")
	require.Error(t, err)
	assert.Equal(t, "Cannot find matching node_id for a given node ip 10.0.0.9", err.Error())
}

func TestHealth(t *testing.T) {
	srv := headStub(t, map[string]func(http.ResponseWriter, *http.Request){
		"/api/v0/health": jsonReply(`{"status":"ok","primary_nodes":3,"sidecar_nodes":2,"uptime":"1m0s"}`),
	})
	out, _, err := run(t, srv, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "primary_nodes:")
	assert.Contains(t, out, "3")
}

func TestNewHeadClient_Address(t *testing.T) {
	assert.Equal(t, "http://localhost:8265/api/v0", NewHeadClient("localhost:8265").base)
	assert.Equal(t, "https://head.example/api/v0", NewHeadClient("https://head.example/").base)
}
