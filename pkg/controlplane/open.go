package controlplane

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/config"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
)

// Open builds the control plane selected by cfg and applies the seed file,
// if any.
func Open(ctx context.Context, cfg config.ControlPlaneConfig, logger *logging.ColoredLogger) (ControlPlane, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var (
		cp  ControlPlane
		err error
	)
	switch cfg.Backend {
	case "rqlite":
		cp, err = OpenRQLite(ctx, cfg.RQLiteDSN, logger)
	case "sqlite":
		cp, err = OpenSQLite(ctx, cfg.SQLitePath, logger)
	case "memory":
		cp = NewMemory()
	default:
		return nil, fmt.Errorf("unknown control plane backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		seed, err := LoadSeed(cfg.SeedFile)
		if err != nil {
			cp.Close()
			return nil, err
		}
		if err := seed.Apply(ctx, cp); err != nil {
			cp.Close()
			return nil, err
		}
		logger.ComponentInfo(logging.ComponentControlPlane, "Seed applied",
			zap.String("file", cfg.SeedFile),
			zap.Int("nodes", len(seed.Nodes)),
			zap.Int("actors", len(seed.Actors)),
			zap.Int("jobs", len(seed.Jobs)))
	}
	return cp, nil
}
