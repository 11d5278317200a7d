package progress

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Reporter interface {
	Report(fraction float64, status string)
}

type Nop struct{}

func (Nop) Report(float64, string) {}

// Func adapts a plain function.
type Func func(fraction float64, status string)

func (f Func) Report(fraction float64, status string) { f(fraction, status) }

// Sampled forwards only the updates the sampler lets through.
type Sampled struct {
	mu      sync.Mutex
	sampler *Sampler
	next    Reporter
}

func NewSampled(next Reporter, bucketSize float64) *Sampled {
	return &Sampled{sampler: NewSampler(bucketSize), next: next}
}

func (s *Sampled) Report(fraction float64, status string) {
	s.mu.Lock()
	ok := s.sampler.ShouldEmit(fraction, status)
	s.mu.Unlock()
	if ok {
		s.next.Report(fraction, status)
	}
}

// Log writes progress as info lines, one per 10%.
func Log(logger *logrus.Logger) Reporter {
	return NewSampled(Func(func(fraction float64, status string) {
		logger.WithField("percent", int(clamp(fraction)*100)).Info(status)
	}), 10)
}

const barWidth = 1000

// Bar draws a terminal progress bar on w.
type Bar struct {
	bar *progressbar.ProgressBar
}

func NewBar(w io.Writer, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions(barWidth,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) Report(fraction float64, status string) {
	if status != "" {
		b.bar.Describe(status)
	}
	_ = b.bar.Set(int(clamp(fraction) * barWidth))
}

func (b *Bar) Finish() { _ = b.bar.Finish() }

// ForTerminal picks a bar when stderr is a terminal and sampled log lines
// otherwise.
func ForTerminal(logger *logrus.Logger) Reporter {
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return NewBar(os.Stderr, "extracting")
	}
	return Log(logger)
}
