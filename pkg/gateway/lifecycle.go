package gateway

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/logging"
)

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (g *Gateway) Start() error {
	ln, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return g.Serve(ln)
}

// Serve serves on an existing listener.
func (g *Gateway) Serve(ln net.Listener) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ln.Close()
	}
	srv := &http.Server{
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logging.NewStandardLogger(g.logger, logging.ComponentGateway), "", 0),
	}
	srv.RegisterOnShutdown(g.stopStreams)
	g.server = srv
	g.mu.Unlock()

	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway listening",
		zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, ends followed log streams and waits
// for in-flight requests up to the configured timeout.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		g.stopStreams()
		return nil
	}
	timeout := g.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	g.logger.ComponentInfo(logging.ComponentGateway, "Shutting down gateway")
	return srv.Shutdown(ctx)
}
