package httputil

import "testing"

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{name: "hex", id: "5f1c2e8a9b", valid: true},
		{name: "uuid", id: "0b9a3c0e-2f1d-4b8e-9d4c-1a2b3c4d5e6f", valid: true},
		{name: "empty", id: "", valid: false},
		{name: "slash", id: "a/b", valid: false},
		{name: "space", id: "a b", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateNodeID(tt.id); got != tt.valid {
				t.Errorf("ValidateNodeID(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}

func TestValidateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"10.0.0.1":    true,
		"::1":         true,
		"":            false,
		"example.com": false,
		"10.0.0.256":  false,
	} {
		if got := ValidateIP(ip); got != want {
			t.Errorf("ValidateIP(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestValidateGlob(t *testing.T) {
	for pattern, want := range map[string]bool{
		"*":            true,
		"worker-*.out": true,
		"[":            false,
		"":             false,
	} {
		if got := ValidateGlob(pattern); got != want {
			t.Errorf("ValidateGlob(%q) = %v, want %v", pattern, got, want)
		}
	}
}

func TestValidateLogFilename(t *testing.T) {
	for name, want := range map[string]bool{
		"raylet.out":         true,
		"worker-1234.err":    true,
		"../etc/passwd":      false,
		"sub/dir.log":        false,
		"..":                 false,
		"":                   false,
		`C:\windows\win.ini`: false,
	} {
		if got := ValidateLogFilename(name); got != want {
			t.Errorf("ValidateLogFilename(%q) = %v, want %v", name, got, want)
		}
	}
}
