// Command gateway runs the cluster state aggregation head: it watches the
// control plane's node table, keeps a client per node agent and serves the
// list and log endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/statehead/pkg/agent"
	"github.com/DeBrosOfficial/statehead/pkg/aggregator"
	"github.com/DeBrosOfficial/statehead/pkg/config"
	"github.com/DeBrosOfficial/statehead/pkg/controlplane"
	"github.com/DeBrosOfficial/statehead/pkg/gateway"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/membership"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/registry"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// lateDirectory lets the registry resolve node ips through the membership
// watcher, which is built after the registry it feeds.
type lateDirectory struct {
	w *membership.Watcher
}

func (d *lateDirectory) NodeIP(id state.NodeID) (string, bool) {
	if d.w == nil {
		return "", false
	}
	return d.w.NodeIP(id)
}

func main() {
	cfg, err := parseHeadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentGeneral, "Loaded head configuration",
		zap.String("addr", cfg.Head.ListenAddr),
		zap.String("control_plane", cfg.ControlPlane.Backend),
		zap.Duration("poll_interval", cfg.Head.MembershipPollInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "Head exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentGeneral, "Head shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.ColoredLogger) error {
	cp, err := controlplane.Open(ctx, cfg.ControlPlane, logger)
	if err != nil {
		return fmt.Errorf("open control plane: %w", err)
	}
	defer cp.Close()

	var (
		m        = metrics.Nop()
		gatherer prometheus.Gatherer
	)
	if cfg.Head.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewPrometheus(reg)
		gatherer = reg
	}

	dir := &lateDirectory{}
	reg := registry.New(agent.Dialer(), dir, logger, m)
	watcher := membership.New(cp, reg, cfg.Head.MembershipPollInterval, logger, m)
	dir.w = watcher

	gw := gateway.New(logger, &gateway.Config{
		ListenAddr:      cfg.Head.ListenAddr,
		ShutdownTimeout: cfg.Head.ShutdownTimeout,
		EnableWebSocket: cfg.Head.EnableWebSocket,
		EnableMetrics:   cfg.Head.EnableMetrics,
	}, &gateway.Dependencies{
		State:    aggregator.NewStateManager(cp, reg, logger, m),
		Logs:     aggregator.NewLogsManager(cp, reg, watcher, cfg.Head.LogStreamBuffer, logger, m),
		Registry: reg,
		Metrics:  m,
		Gatherer: gatherer,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCancel(reg.Run(gctx)) })
	g.Go(func() error { return ignoreCancel(watcher.Run(gctx)) })
	g.Go(gw.Start)
	g.Go(func() error {
		<-gctx.Done()
		return gw.Shutdown(context.Background())
	})
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
