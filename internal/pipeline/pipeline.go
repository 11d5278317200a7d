package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/vidsub/internal/domain/intervals"
	"github.com/forPelevin/vidsub/internal/domain/segment"
	"github.com/forPelevin/vidsub/internal/domain/subtitles"
	"github.com/forPelevin/vidsub/internal/ports"
	"github.com/forPelevin/vidsub/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vidsub/internal/ports/adapters/tessdata"
	"github.com/forPelevin/vidsub/internal/ports/adapters/tesseract"
	"github.com/forPelevin/vidsub/internal/types"
	"github.com/forPelevin/vidsub/internal/usecase"
	"github.com/google/uuid"
)

type Config struct {
	Input string
	// Name is the base name of the produced files; defaults to the input's.
	Name string
	// DurationSec is the video length in whole seconds. Zero or less probes
	// the input with ffprobe.
	DurationSec int
	Language    string
	Crop        bool
	OutDir      string
	Format      string
	// Flat writes results straight into OutDir instead of a per-run subdir.
	Flat bool

	// Zero values of the sampling knobs select the defaults: 100ms steps,
	// 0.5 similarity, 10s tail.
	Step       time.Duration
	Similarity float64
	Tail       time.Duration

	Logf     func(format string, args ...any)
	Progress ports.ProgressReporter

	// CacheDir is the base directory for per-run scratch space.
	// If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string
	FFmpegArgs  string

	TesseractPath        string
	TesseractArgs        string
	TessdataDir          string
	TessdataURL          string
	TessdataAllowedHosts []string
}

type Result struct {
	RunDir    string
	Subtitles string
	Manifest  string
	Cues      int
	Samples   int
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	st, err := os.Stat(c.Input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if st.IsDir() {
		return fmt.Errorf("input %s is a directory", c.Input)
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("language is required")
	}
	if c.Step != 0 && !intervals.ValidStep(c.Step) {
		return fmt.Errorf("step %s must divide one second", c.Step)
	}
	if c.Similarity < 0 || c.Similarity > 1 {
		return fmt.Errorf("similarity must be within (0, 1], or 0 for the default")
	}
	if c.Tail < 0 {
		return fmt.Errorf("tail must be >= 0")
	}
	if !subtitles.ValidFormat(c.Format) {
		return fmt.Errorf("unknown subtitle format %q", c.Format)
	}
	return tessdata.ValidateBaseURL(c.TessdataURL, c.TessdataAllowedHosts)
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	// adapters
	v, err := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath).WithExtraArgs(cfg.FFmpegArgs)
	if err != nil {
		return Result{}, err
	}
	models := tessdata.New(cfg.TessdataDir, cfg.TessdataURL)
	ocr, err := tesseract.New(cfg.TesseractPath, models.Dir()).WithExtraArgs(cfg.TesseractArgs)
	if err != nil {
		return Result{}, err
	}

	if err := tessdata.CheckLanguage(cfg.Language); err != nil {
		logf("warning: %v", err)
	}
	// A missing model is not fatal: every sample then fails recognition and
	// the run ends without text.
	if p, err := models.Ensure(ctx, cfg.Language); err != nil {
		logf("model %s unavailable: %v", cfg.Language, err)
	} else {
		logf("model: %s", p)
	}

	durationSec := cfg.DurationSec
	if durationSec <= 0 {
		d, err := v.ProbeDuration(ctx, cfg.Input)
		if err != nil {
			return Result{}, err
		}
		durationSec = int(d / time.Second)
	}
	logf("duration: %ds", durationSec)

	uc := usecase.New(usecase.Deps{
		Frames:     v,
		Recognizer: ocr,
		Progress:   cfg.Progress,
	})

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	workDir := filepath.Join(baseCache, "runs", uuid.NewString())
	logf("preparing workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logf("cleanup %s: %v", workDir, err)
		}
	}()

	res, err := uc.Run(ctx, usecase.Input{
		Video:       cfg.Input,
		DurationSec: durationSec,
		Language:    cfg.Language,
		Crop:        cfg.Crop,
		Format:      cfg.Format,
		Segment: segment.Options{
			Step:      cfg.Step,
			Threshold: cfg.Similarity,
			Tail:      cfg.Tail,
		},
		WorkDir: workDir,
		Logf:    logf,
	})
	if err != nil {
		return Result{}, err
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	name := cfg.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))
	}
	runOutDir := outDir
	if !cfg.Flat {
		runOutDir = buildRunOutDir(outDir, cfg.Input, time.Now().UTC())
	}
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Result{}, err
	}
	logf("output run dir: %s", runOutDir)

	subPath := filepath.Join(runOutDir, name+subtitles.Extension(cfg.Format))
	if err := moveFile(res.Path, subPath); err != nil {
		return Result{}, fmt.Errorf("store subtitles: %w", err)
	}

	m := buildManifest(cfg, subPath, res)
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, name+".json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Result{}, err
	}
	logf("subtitles written (%d cues): %s", len(res.Cues), subPath)

	return Result{
		RunDir:    runOutDir,
		Subtitles: subPath,
		Manifest:  manifestPath,
		Cues:      len(res.Cues),
		Samples:   res.Samples,
	}, nil
}

func buildManifest(cfg Config, subPath string, res usecase.Result) types.Manifest {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = subtitles.FormatSRT
	}
	m := types.Manifest{
		Input:     cfg.Input,
		Language:  cfg.Language,
		Subtitles: filepath.Base(subPath),
		Format:    format,
		Samples:   res.Samples,
	}
	for _, c := range res.Cues {
		m.Cues = append(m.Cues, types.ManifestCue{
			Index:    c.Index,
			StartSec: c.Start.Seconds(),
			EndSec:   c.End.Seconds(),
			Text:     c.Text,
		})
	}
	return m
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.FrameSampler = (*ffmpeg.Adapter)(nil)
var _ ports.Recognizer = (*tesseract.Adapter)(nil)
var _ ports.ModelStore = (*tessdata.Store)(nil)
