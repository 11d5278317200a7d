package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/vidsub/internal/domain/crop"
	"github.com/forPelevin/vidsub/internal/domain/intervals"
	"github.com/forPelevin/vidsub/internal/domain/segment"
	"github.com/forPelevin/vidsub/internal/domain/subtitles"
	"github.com/forPelevin/vidsub/internal/ports"
	"github.com/forPelevin/vidsub/internal/progress"
	"github.com/forPelevin/vidsub/internal/types"
)

// ErrNoTextDetected is returned when a whole video produced no cue.
var ErrNoTextDetected = errors.New("no text detected")

type Deps struct {
	Frames     ports.FrameSampler
	Recognizer ports.Recognizer
	Progress   ports.ProgressReporter
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	Video       string
	DurationSec int
	Language    string
	Crop        bool
	Format      string
	Segment     segment.Options
	// WorkDir holds the frame image and the subtitle file while the run is
	// in flight. It must not be shared with another run.
	WorkDir string
	Logf    func(format string, args ...any)
}

type Result struct {
	Path       string
	Cues       []types.Cue
	Samples    int
	Recognized int
	Failed     int
}

func (u Usecase) Run(ctx context.Context, in Input) (res Result, err error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	report := u.d.Progress
	if report == nil {
		report = progress.Nop{}
	}

	frame := filepath.Join(in.WorkDir, "frame.jpg")
	subPath := filepath.Join(in.WorkDir, "subtitles"+subtitles.Extension(in.Format))
	w, err := subtitles.Create(subPath, in.Format)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close subtitles: %w", cerr)
		}
		_ = os.Remove(frame)
		if err != nil {
			_ = os.Remove(subPath)
			res = Result{}
		}
	}()

	// the engine back-dates by the same step the grid advances by
	step := intervals.Normalize(in.Segment.Step)
	if step != in.Segment.Step && in.Segment.Step != 0 {
		logf("step %s does not divide a second, using %s", in.Segment.Step, step)
	}
	in.Segment.Step = step
	engine := segment.New(in.Segment)
	total := intervals.Count(in.DurationSec, step)

	emit := func(c types.Cue) error {
		if err := w.WriteCue(c); err != nil {
			return fmt.Errorf("write cue %d: %w", c.Index, err)
		}
		res.Cues = append(res.Cues, c)
		return nil
	}

	for at := range intervals.Generate(in.DurationSec, step) {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("extraction stopped at %s: %w", at, err)
		}

		sample, recErr, err := u.sample(ctx, in, frame, at)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, fmt.Errorf("extraction stopped at %s: %w", at, ctxErr)
			}
			return Result{}, err
		}
		res.Samples++
		if sample.HasText() {
			res.Recognized++
		}
		if recErr != nil {
			if res.Failed == 0 {
				logf("recognition failed at %s: %v", at, recErr)
			}
			res.Failed++
		}
		if c, ok := engine.Observe(sample); ok {
			if err := emit(c); err != nil {
				return Result{}, err
			}
		}
		report.Report(float64(res.Samples)/float64(total), "extracting")
	}

	if c, ok := engine.Flush(); ok {
		if err := emit(c); err != nil {
			return Result{}, err
		}
	}
	report.Report(1, "done")

	if res.Failed > 0 {
		logf("recognition failed on %d of %d samples", res.Failed, res.Samples)
	}
	if engine.Emitted() == 0 {
		logf("no text in %d samples", res.Samples)
		return Result{}, ErrNoTextDetected
	}
	res.Path = subPath
	logf("extracted %d cues from %d samples (%d with text)", len(res.Cues), res.Samples, res.Recognized)
	return res, nil
}

// sample extracts and recognizes one frame. Only a failed extraction is
// fatal; a crop or recognition failure comes back as recErr and leaves the
// sample without text.
func (u Usecase) sample(ctx context.Context, in Input, frame string, at time.Duration) (s types.Sample, recErr, err error) {
	s = types.Sample{At: at}

	_ = os.Remove(frame)
	if err := u.d.Frames.ExtractFrame(ctx, in.Video, at, frame); err != nil {
		if errors.Is(err, ports.ErrNoFrame) {
			return s, nil, nil
		}
		return s, nil, err
	}

	if in.Crop {
		if err := crop.File(frame, frame); err != nil {
			return s, err, nil
		}
	}

	rec := u.d.Recognizer.Recognize(ctx, frame, in.Language)
	switch rec.Status {
	case types.RecognitionText:
		s.Text = rec.Text
	case types.RecognitionFailed:
		return s, rec.Err, nil
	}
	return s, nil, nil
}
