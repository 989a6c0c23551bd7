package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
	}{
		{
			name:     "bad listen addr",
			mutate:   func(c *Config) { c.Head.ListenAddr = "8265" },
			wantPath: "head.listen_addr",
		},
		{
			name:     "zero poll interval",
			mutate:   func(c *Config) { c.Head.MembershipPollInterval = 0 },
			wantPath: "head.membership_poll_interval",
		},
		{
			name:     "empty stream buffer",
			mutate:   func(c *Config) { c.Head.LogStreamBuffer = 0 },
			wantPath: "head.log_stream_buffer",
		},
		{
			name:     "unknown backend",
			mutate:   func(c *Config) { c.ControlPlane.Backend = "etcd" },
			wantPath: "control_plane.backend",
		},
		{
			name:     "bad rqlite dsn",
			mutate:   func(c *Config) { c.ControlPlane.RQLiteDSN = "localhost:5001" },
			wantPath: "control_plane.rqlite_dsn",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			wantPath: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatalf("Validate() returned no errors")
			}
			found := false
			for _, err := range errs {
				if ve, ok := err.(ValidationError); ok && ve.Path == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want an error at %s", errs, tt.wantPath)
			}
		})
	}
}

func TestValidateAgent(t *testing.T) {
	cfg := Default()
	cfg.Agent.LogDir = t.TempDir()
	if errs := cfg.ValidateAgent(); len(errs) != 0 {
		t.Fatalf("ValidateAgent() = %v, want no errors", errs)
	}

	cfg.Agent.SidecarListenAddr = cfg.Agent.PrimaryListenAddr
	cfg.Agent.NodeIP = "not-an-ip"
	if errs := cfg.ValidateAgent(); len(errs) != 2 {
		t.Errorf("ValidateAgent() = %v, want 2 errors", errs)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "head.yaml")
	body := `
head:
  listen_addr: ":9000"
  membership_poll_interval: 2s
control_plane:
  backend: memory
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Head.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.Head.ListenAddr)
	}
	if cfg.Head.MembershipPollInterval != 2*time.Second {
		t.Errorf("MembershipPollInterval = %v", cfg.Head.MembershipPollInterval)
	}
	if cfg.Head.LogStreamBuffer != 16 {
		t.Errorf("LogStreamBuffer = %d, want default 16", cfg.Head.LogStreamBuffer)
	}
	if cfg.ControlPlane.Backend != "memory" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("head:\n  listen_adr: \":1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("Load() error = %v, want invalid config", err)
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.ControlPlane.Backend = "sqlite"
	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want one error", errs)
	}
	cfg.ControlPlane.SQLitePath = filepath.Join(t.TempDir(), "cp.db")
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want none", errs)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	p, err := DefaultPath("head.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dir, "head.yaml") {
		t.Errorf("DefaultPath() = %q", p)
	}
	if p, _ := DefaultPath("/etc/statehead/agent.yaml"); p != "/etc/statehead/agent.yaml" {
		t.Errorf("absolute path rewritten to %q", p)
	}
}

func TestValidateAgent_LogDirUnderFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.Agent.LogDir = filepath.Join(file, "logs")
	errs := cfg.ValidateAgent()
	if len(errs) == 0 || !strings.Contains(errs[0].Error(), "agent.log_dir") {
		t.Errorf("ValidateAgent() = %v, want an agent.log_dir error", errs)
	}
}
