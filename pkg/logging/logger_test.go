package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/config"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.log")
	logger, err := New(config.LoggingConfig{Level: "info", Format: "console", OutputFile: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.ComponentDebug(ComponentRegistry, "hidden")
	logger.ComponentInfo(ComponentRegistry, "endpoint added", zap.String("node_id", "n1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[REGISTRY] endpoint added") {
		t.Errorf("log output missing component tag: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("file output should not contain color codes: %q", out)
	}
}

func TestNew_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.json")
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json", OutputFile: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.ComponentWarn(ComponentGateway, "slow request")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"msg":"[GATEWAY] slow request"`) {
		t.Errorf("unexpected json output: %s", data)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(config.LoggingConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.ComponentError(ComponentAgent, "nothing happens")
	_, _ = NewStandardLogger(l, ComponentGeneral).Write([]byte("ok\n"))
}
