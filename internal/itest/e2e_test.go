//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/vidsub/internal/pipeline"
	"github.com/forPelevin/vidsub/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vidsub/internal/types"
)

func TestE2E(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe", "tesseract"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Fatalf("%s is required for itest: %v", bin, err)
		}
	}

	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	// Two caption lines burned into the bottom band of a black clip.
	filter := strings.Join([]string{
		"drawtext=text='HELLO WORLD':fontcolor=white:fontsize=64:x=(w-text_w)/2:y=h-120:enable='between(t,0,3)'",
		"drawtext=text='GOODBYE NOW':fontcolor=white:fontsize=64:x=(w-text_w)/2:y=h-120:enable='between(t,3,6)'",
	}, ",")
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=6",
		"-vf", filter,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	dur, err := ffmpeg.New("ffmpeg", "ffprobe").ProbeDuration(ctx, in)
	if err != nil {
		t.Fatalf("probe fixture: %v", err)
	}
	if dur < 5500*time.Millisecond {
		t.Fatalf("fixture too short: %s", dur)
	}

	outDir := filepath.Join(tmp, "out")

	cfg := pipeline.Config{
		Input:       in,
		Language:    "eng",
		Crop:        true,
		OutDir:      outDir,
		Format:      "srt",
		CacheDir:    filepath.Join(tmp, "cache"),
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		TessdataDir: os.Getenv("TESSDATA_DIR"),
		TessdataURL: os.Getenv("TESSDATA_URL"),
	}
	if cfg.TessdataDir == "" {
		cfg.TessdataDir = filepath.Join(tmp, "tessdata")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	b, err := os.ReadFile(res.Subtitles)
	if err != nil {
		t.Fatalf("missing subtitles: %v", err)
	}
	srt := string(b)
	if !strings.Contains(srt, "HELLO") || !strings.Contains(srt, "GOODBYE") {
		t.Fatalf("expected both lines in subtitles:\n%s", srt)
	}
	if !strings.HasPrefix(srt, "1\n00:00:0") {
		t.Fatalf("unexpected srt header:\n%s", srt)
	}

	mb, err := os.ReadFile(res.Manifest)
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(mb, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Cues) != res.Cues || m.Samples < 60 {
		t.Fatalf("unexpected manifest: cues=%d samples=%d (result cues=%d)", len(m.Cues), m.Samples, res.Cues)
	}
}
