package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/vidsub/internal/config"
)

func TestPipelineConfig_MapsFileConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.OCR.Language = "fas"
	cfg.OCR.Crop = true
	cfg.Sampling.StepMS = 200
	cfg.Sampling.TailMS = 4000
	cfg.FFmpeg.ExtraArgs = "-hwaccel auto"

	pc := pipelineConfig(cfg)
	if pc.Language != "fas" || !pc.Crop {
		t.Fatalf("ocr settings not mapped: %+v", pc)
	}
	if pc.Step != 200*time.Millisecond || pc.Tail != 4*time.Second || pc.Similarity != 0.5 {
		t.Fatalf("sampling not mapped: step=%s tail=%s sim=%v", pc.Step, pc.Tail, pc.Similarity)
	}
	if pc.FFmpegArgs != "-hwaccel auto" || pc.CacheDir != cfg.Paths.CacheDir {
		t.Fatalf("paths not mapped: %+v", pc)
	}
}

func TestConfigCommand_PrintsTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUBTITLE_LANG", "deu")
	path := filepath.Join(t.TempDir(), "config.toml")

	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "# "+path) {
		t.Fatalf("expected config path header, got %q", s)
	}
	if !strings.Contains(s, "language = ") || !strings.Contains(s, "deu") {
		t.Fatalf("expected env override in output:\n%s", s)
	}
}

func TestExtractCommand_ArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no args", args: []string{"extract"}, want: "accepts 1 arg(s), received 0"},
		{name: "too many", args: []string{"extract", "a.mp4", "b.mp4"}, want: "accepts 1 arg(s), received 2"},
		{name: "bad duration", args: []string{"extract", "a.mp4", "--duration", "x"}, want: `invalid argument "x" for "--duration"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRoot()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(tt.args)
			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractCommand_MissingInput(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	root := newRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"extract", filepath.Join(home, "missing.mp4"),
		"--config", filepath.Join(home, "config.toml"),
	})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "config: stat input:") {
		t.Fatalf("expected stat input error, got %v", err)
	}
}
