package validate

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "head.listen_addr"
	Message string // e.g., "invalid address"
	Hint    string // e.g., "expected host:port or :port"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateLogDir accepts an existing directory, or a missing one whose
// nearest existing ancestor is a directory the agent can create it in.
func ValidateLogDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("must not be empty")
	}
	path = expandHome(os.ExpandEnv(path))

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", path)
	case !os.IsNotExist(err):
		return fmt.Errorf("cannot access %s: %v", path, err)
	}

	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return ValidateDirWritable(dir)
		}
		if !os.IsNotExist(err) || dir == filepath.Dir(dir) {
			return fmt.Errorf("cannot access %s: %v", dir, err)
		}
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// ValidateDirWritable validates that a directory exists and is writable.
func ValidateDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}
	probe, err := os.CreateTemp(path, ".statehead-probe-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %v", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// ValidateFileReadable validates that a seed or state file can be opened.
func ValidateFileReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %v", err)
	}
	return f.Close()
}

// ValidateListenAddr validates a listen address; the host may be empty.
func ValidateListenAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected format host:port or :port")
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", host)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("port must be a number between 0 and 65535; got %q", port)
	}
	return nil
}

// ValidateURL validates an absolute http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https; got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
