package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/DeBrosOfficial/statehead/pkg/config"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// parseHeadConfig builds the head configuration.
// Priority: flags > env > config file > defaults.
func parseHeadConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("statehead", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config YAML file (default ~/.statehead/configs/head.yaml when present)")
	addr := fs.String("addr", "", "HTTP listen address (e.g., :8265)")
	backend := fs.String("control-plane", "", "Control plane backend: rqlite, sqlite or memory")
	dsn := fs.String("rqlite-dsn", "", "RQLite HTTP API URL")
	sqlitePath := fs.String("sqlite-path", "", "Database file for the sqlite backend")
	seed := fs.String("seed", "", "YAML file with records loaded into the control plane at startup")
	poll := fs.Duration("poll-interval", 0, "Membership poll interval")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: console or json")
	noWS := fs.Bool("disable-websocket", false, "Refuse WebSocket upgrades on log retrieval")
	noMetrics := fs.Bool("disable-metrics", false, "Do not expose /metrics")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		if p, err := config.DefaultPath("head.yaml"); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Environment
	cfg.Head.ListenAddr = getEnvDefault("STATEHEAD_ADDR", cfg.Head.ListenAddr)
	cfg.Head.MembershipPollInterval = getEnvDurationDefault("STATEHEAD_POLL_INTERVAL", cfg.Head.MembershipPollInterval)
	cfg.Head.EnableWebSocket = getEnvBoolDefault("STATEHEAD_ENABLE_WEBSOCKET", cfg.Head.EnableWebSocket)
	cfg.Head.EnableMetrics = getEnvBoolDefault("STATEHEAD_ENABLE_METRICS", cfg.Head.EnableMetrics)
	cfg.ControlPlane.Backend = getEnvDefault("STATEHEAD_CONTROL_PLANE", cfg.ControlPlane.Backend)
	cfg.ControlPlane.RQLiteDSN = getEnvDefault("STATEHEAD_RQLITE_DSN", cfg.ControlPlane.RQLiteDSN)
	cfg.ControlPlane.SQLitePath = getEnvDefault("STATEHEAD_SQLITE_PATH", cfg.ControlPlane.SQLitePath)
	cfg.ControlPlane.SeedFile = getEnvDefault("STATEHEAD_SEED_FILE", cfg.ControlPlane.SeedFile)
	cfg.Logging.Level = getEnvDefault("STATEHEAD_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvDefault("STATEHEAD_LOG_FORMAT", cfg.Logging.Format)

	// Flags
	if fs.Changed("addr") {
		cfg.Head.ListenAddr = *addr
	}
	if fs.Changed("control-plane") {
		cfg.ControlPlane.Backend = *backend
	}
	if fs.Changed("rqlite-dsn") {
		cfg.ControlPlane.RQLiteDSN = *dsn
	}
	if fs.Changed("sqlite-path") {
		cfg.ControlPlane.SQLitePath = *sqlitePath
	}
	if fs.Changed("seed") {
		cfg.ControlPlane.SeedFile = *seed
	}
	if fs.Changed("poll-interval") {
		cfg.Head.MembershipPollInterval = *poll
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = *logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = *logFormat
	}
	if *noWS {
		cfg.Head.EnableWebSocket = false
	}
	if *noMetrics {
		cfg.Head.EnableMetrics = false
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}
