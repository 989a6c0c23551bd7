package config

import "time"

// ControlPlaneConfig selects and configures the cluster's authoritative record store
type ControlPlaneConfig struct {
	Backend        string        `yaml:"backend"`         // rqlite, sqlite or memory
	RQLiteDSN      string        `yaml:"rqlite_dsn"`      // RQLite HTTP API URL
	SQLitePath     string        `yaml:"sqlite_path"`     // Database file for the sqlite backend
	SeedFile       string        `yaml:"seed_file"`       // YAML records loaded at startup
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // Budget for the initial connection
}
