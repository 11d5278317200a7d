package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/vidsub/internal/config"
	"github.com/sirupsen/logrus"
)

func TestConfigure_WritesJSONToLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "vidsub.log")

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
	logger.WithField("session", "abc").Debug("hello")

	b, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"session":"abc"`) {
		t.Fatalf("expected json field in log, got %s", b)
	}
}
