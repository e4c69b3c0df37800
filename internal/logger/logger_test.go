package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/medvault/internal/config"
)

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(config.LogConfig{Level: "warn", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if strings.Contains(string(out), "hidden") || !strings.Contains(string(out), `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud", Format: "console"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
