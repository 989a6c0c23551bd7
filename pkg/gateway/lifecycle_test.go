package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/statehead/pkg/state"
)

func TestServeShutdownEndsFollowedStreams(t *testing.T) {
	logs := &mockLogService{
		StreamLogsFunc: func(ctx context.Context, opts state.LogOptions) (<-chan state.LogChunk, error) {
			ch := make(chan state.LogChunk, 1)
			ch <- state.LogChunk{Data: []byte("first\n")}
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
	gw := New(nil, &Config{ShutdownTimeout: 5 * time.Second}, &Dependencies{Logs: logs, Registry: registryLen{primary: 1}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- gw.Serve(ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/api/v0/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stream, err := http.Get(base + "/api/v0/logs/stream?node_id=n1&filename=raylet.out")
	require.NoError(t, err)
	defer stream.Body.Close()
	buf := make([]byte, 6)
	_, err = io.ReadFull(stream.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(buf))

	require.NoError(t, gw.Shutdown(context.Background()))

	rest, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, msgStreamEnded, string(rest))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServeAfterShutdown(t *testing.T) {
	gw := New(nil, &Config{}, &Dependencies{})
	require.NoError(t, gw.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, gw.Serve(ln))
}
