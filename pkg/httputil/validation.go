package httputil

import (
	"net"
	"path/filepath"
	"regexp"
	"strings"
)

// Node ids are opaque, but they travel in URLs and file names, so only
// a conservative alphabet is accepted.
var nodeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// ValidateNodeID checks if a node id is well formed.
func ValidateNodeID(id string) bool {
	return nodeIDRegex.MatchString(strings.TrimSpace(id))
}

// ValidateIP checks if a string is a literal IPv4 or IPv6 address.
func ValidateIP(ip string) bool {
	return net.ParseIP(strings.TrimSpace(ip)) != nil
}

// ValidateGlob checks that a glob pattern is syntactically valid.
func ValidateGlob(pattern string) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	_, err := filepath.Match(pattern, "")
	return err == nil
}

// ValidateLogFilename checks that a requested log file name stays inside
// the log directory: no separators, no parent references.
func ValidateLogFilename(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
