package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/DeBrosOfficial/statehead/pkg/config"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// parseAgentConfig builds the agent configuration.
// Priority: flags > env > config file > defaults.
func parseAgentConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("statehead-node", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config YAML file (default ~/.statehead/configs/agent.yaml when present)")
	nodeID := fs.String("id", "", "Node identifier (generated when empty)")
	nodeIP := fs.String("ip", "", "Address advertised to the head (detected when empty)")
	primary := fs.String("primary-addr", "", "Listen address of the primary agent (tasks, objects)")
	sidecar := fs.String("sidecar-addr", "", "Listen address of the sidecar agent (runtime envs, logs)")
	logDir := fs.String("log-dir", "", "Directory served by the log routes")
	stateFile := fs.String("state", "", "YAML file with this node's tasks, objects and runtime envs")
	register := fs.Bool("register", false, "Write this node into the control plane and heartbeat it")
	backend := fs.String("control-plane", "", "Control plane backend used when registering")
	dsn := fs.String("rqlite-dsn", "", "RQLite HTTP API URL used when registering")
	sqlitePath := fs.String("sqlite-path", "", "Database file of the sqlite backend used when registering")
	interval := fs.Duration("stream-interval", 0, "Default poll interval of followed logs")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		if p, err := config.DefaultPath("agent.yaml"); err == nil {
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
	cfg.Agent.NodeID = getEnvDefault("STATEHEAD_NODE_ID", cfg.Agent.NodeID)
	cfg.Agent.NodeIP = getEnvDefault("STATEHEAD_NODE_IP", cfg.Agent.NodeIP)
	cfg.Agent.LogDir = getEnvDefault("STATEHEAD_LOG_DIR", cfg.Agent.LogDir)
	cfg.ControlPlane.Backend = getEnvDefault("STATEHEAD_CONTROL_PLANE", cfg.ControlPlane.Backend)
	cfg.ControlPlane.RQLiteDSN = getEnvDefault("STATEHEAD_RQLITE_DSN", cfg.ControlPlane.RQLiteDSN)
	cfg.ControlPlane.SQLitePath = getEnvDefault("STATEHEAD_SQLITE_PATH", cfg.ControlPlane.SQLitePath)
	cfg.Logging.Level = getEnvDefault("STATEHEAD_LOG_LEVEL", cfg.Logging.Level)

	// Flags
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("id", &cfg.Agent.NodeID, *nodeID)
	set("ip", &cfg.Agent.NodeIP, *nodeIP)
	set("primary-addr", &cfg.Agent.PrimaryListenAddr, *primary)
	set("sidecar-addr", &cfg.Agent.SidecarListenAddr, *sidecar)
	set("log-dir", &cfg.Agent.LogDir, *logDir)
	set("state", &cfg.Agent.StateFile, *stateFile)
	set("control-plane", &cfg.ControlPlane.Backend, *backend)
	set("rqlite-dsn", &cfg.ControlPlane.RQLiteDSN, *dsn)
	set("sqlite-path", &cfg.ControlPlane.SQLitePath, *sqlitePath)
	set("log-level", &cfg.Logging.Level, *logLevel)
	if fs.Changed("register") {
		cfg.Agent.Register = *register
	}
	if fs.Changed("stream-interval") {
		cfg.Agent.StreamInterval = *interval
	}

	if cfg.Agent.NodeID == "" {
		cfg.Agent.NodeID = uuid.NewString()
	}
	if cfg.Agent.NodeIP == "" {
		cfg.Agent.NodeIP = detectIP()
	}

	if errs := cfg.ValidateAgent(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

// detectIP returns the first non-loopback IPv4 address, or 127.0.0.1.
func detectIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

// portOf extracts the port of a listen address such as ":52365".
func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

// durationOr returns d, or def when d is not positive.
func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
