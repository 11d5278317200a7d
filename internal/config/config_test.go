package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}

	t.Setenv("SUBTITLE_LANG", " fas ")
	t.Setenv("USE_CROP", "yes")
	t.Setenv("TESSDATA_ALLOWED_HOSTS", "mirror.internal, ,github.com")
	t.Setenv("VIDSUB_LOG_LEVEL", "debug")
	t.Setenv("VIDSUB_LOG_FORMAT", "json")
	t.Setenv("VIDSUB_ADDR", "0.0.0.0:9000")

	applyEnvOverrides(cfg)

	if cfg.OCR.Language != "fas" {
		t.Fatalf("language override failed: %q", cfg.OCR.Language)
	}
	if !cfg.OCR.Crop {
		t.Fatalf("crop should be enabled by any USE_CROP value")
	}
	if len(cfg.OCR.AllowedHosts) != 2 || cfg.OCR.AllowedHosts[0] != "mirror.internal" {
		t.Fatalf("allowed hosts override failed: %q", cfg.OCR.AllowedHosts)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Fatalf("addr override failed: %q", cfg.Server.Addr)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Sampling.Similarity = 0.75
	cfg.Output.Format = "ass"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Sampling.Similarity != 0.75 || loaded.Output.Format != "ass" {
		t.Fatalf("expected values to persist: %+v %+v", loaded.Sampling, loaded.Output)
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path not recorded: %q", loaded.Paths.ConfigPath)
	}
}

func TestLoad_WritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sampling.StepMS != defaultStepMS || cfg.OCR.Language == "" {
		t.Fatalf("expected defaults, got %+v", cfg.Sampling)
	}
	b, err := Encode(cfg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), "step_ms = 100") {
		t.Fatalf("expected step_ms in template:\n%s", b)
	}
}

func TestLoad_RejectsBrokenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(&Config{}, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := writeFile(path, "[ocr\nlanguage = "); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}
