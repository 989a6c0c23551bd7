package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the directory searched for config files.
const ConfigDirEnv = "STATEHEAD_CONFIG_DIR"

// ConfigDir returns $STATEHEAD_CONFIG_DIR, or ~/.statehead when unset.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".statehead"), nil
}

// DefaultPath returns where the named file ("head.yaml", "agent.yaml")
// lives in the config dir. Absolute names are returned unchanged.
func DefaultPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
