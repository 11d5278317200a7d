package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/vidsub/internal/ports"
	"github.com/google/shlex"
)

// ErrFrameExtract marks a failed ffmpeg invocation. It aborts the whole run.
var ErrFrameExtract = errors.New("ffmpeg extract frame")

type Adapter struct {
	ffmpeg    string
	ffprobe   string
	extraArgs []string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// WithExtraArgs appends raw, split shell-style, to every frame extraction
// right before the output path.
func (a *Adapter) WithExtraArgs(raw string) (*Adapter, error) {
	if strings.TrimSpace(raw) == "" {
		return a, nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg args: %w", err)
	}
	a.extraArgs = args
	return a, nil
}

func (a *Adapter) ExtractFrame(ctx context.Context, video string, at time.Duration, outJPG string) error {
	args := []string{
		"-v", "error",
		"-ss", fmtTimestamp(at),
		"-i", video,
		"-pix_fmt", "yuvj422p",
		"-vframes", "1",
		"-q:v", "2",
	}
	args = append(args, a.extraArgs...)
	args = append(args, "-y", outJPG)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w at %s: %v\n%s", ErrFrameExtract, fmtTimestamp(at), err, string(b))
	}
	st, err := os.Stat(outJPG)
	if err != nil || st.Size() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrNoFrame, fmtTimestamp(at))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, video string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		video,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// fmtTimestamp renders d as HH:MM:SS.mmm, a form ffmpeg accepts for -ss.
func fmtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", int(h), int(m), int(s), int(d/time.Millisecond))
}
