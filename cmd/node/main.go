// Command node runs the per-node agent: a primary listener for tasks and
// objects and a sidecar listener for runtime envs and log files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/statehead/pkg/agent"
	"github.com/DeBrosOfficial/statehead/pkg/config"
	"github.com/DeBrosOfficial/statehead/pkg/controlplane"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := parseAgentConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logger.ComponentInfo(logging.ComponentAgent, "Loaded agent configuration",
		zap.String("node_id", cfg.Agent.NodeID),
		zap.String("node_ip", cfg.Agent.NodeIP),
		zap.String("primary_addr", cfg.Agent.PrimaryListenAddr),
		zap.String("sidecar_addr", cfg.Agent.SidecarListenAddr),
		zap.String("log_dir", cfg.Agent.LogDir),
		zap.Bool("register", cfg.Agent.Register),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.ComponentError(logging.ComponentAgent, "Agent exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentAgent, "Agent shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.ColoredLogger) error {
	store := agent.NewLocalState()
	if cfg.Agent.StateFile != "" {
		loaded, err := agent.LoadLocalState(cfg.Agent.StateFile)
		if err != nil {
			return err
		}
		store = loaded
	}
	if err := os.MkdirAll(cfg.Agent.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	srv := agent.NewServer(state.NodeID(cfg.Agent.NodeID), store, cfg.Agent.LogDir,
		durationOr(cfg.Agent.StreamInterval, 500*time.Millisecond), logger)

	servers := []*http.Server{
		newHTTPServer(cfg.Agent.PrimaryListenAddr, srv.PrimaryRoutes(), logger),
		newHTTPServer(cfg.Agent.SidecarListenAddr, srv.SidecarRoutes(), logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			logger.ComponentInfo(logging.ComponentAgent, "Agent HTTP server starting", zap.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", s.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logger.ComponentWarn(logging.ComponentAgent, "HTTP server shutdown error",
					zap.String("addr", s.Addr), zap.Error(err))
			}
		}
		return nil
	})

	if cfg.Agent.Register {
		cp, err := controlplane.Open(ctx, cfg.ControlPlane, logger)
		if err != nil {
			return fmt.Errorf("open control plane: %w", err)
		}
		defer cp.Close()

		node, err := nodeRecord(cfg)
		if err != nil {
			return err
		}
		reg := agent.NewRegistrar(cp, node, durationOr(cfg.Agent.HeartbeatInterval, 5*time.Second), logger)
		g.Go(func() error {
			if err := reg.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func newHTTPServer(addr string, h http.Handler, logger *logging.ColoredLogger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logging.NewStandardLogger(logger, logging.ComponentAgent), "", 0),
	}
}

func nodeRecord(cfg *config.Config) (state.NodeRecord, error) {
	primary, err := portOf(cfg.Agent.PrimaryListenAddr)
	if err != nil {
		return state.NodeRecord{}, fmt.Errorf("primary listen address: %w", err)
	}
	sidecar, err := portOf(cfg.Agent.SidecarListenAddr)
	if err != nil {
		return state.NodeRecord{}, fmt.Errorf("sidecar listen address: %w", err)
	}
	hostname, _ := os.Hostname()
	return state.NodeRecord{
		NodeID:      state.NodeID(cfg.Agent.NodeID),
		NodeIP:      cfg.Agent.NodeIP,
		Hostname:    hostname,
		PrimaryPort: primary,
		SidecarPort: sidecar,
		State:       state.NodeAlive,
	}, nil
}
