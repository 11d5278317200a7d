package segment

import (
	"strings"
	"time"

	"github.com/forPelevin/vidsub/internal/types"
)

const (
	DefaultStep      = 100 * time.Millisecond
	DefaultThreshold = 0.5
	DefaultTail      = 10 * time.Second

	placeholder = " "
)

type Options struct {
	// Step is the sampling interval; emitted cue starts are back-dated by it.
	Step time.Duration
	// Threshold is the share of the sample's tokens that must also appear in
	// the baseline for the sample to count as the same subtitle. Zero selects
	// DefaultThreshold; a literal zero would merge every line into one.
	Threshold float64
	// Tail is how long the final cue stays on screen.
	Tail time.Duration
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Tail <= 0 {
		o.Tail = DefaultTail
	}
	return o
}

// Engine turns an ordered stream of samples into cues. It holds the state of
// exactly one video and must not be shared between runs.
type Engine struct {
	opts Options

	lastText   string
	duplicate  bool
	repeats    int
	lastChange time.Duration
	cues       int

	seen    bool
	flushed bool
}

func New(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults(), lastText: placeholder}
}

// Observe feeds the next sample. It returns the cue finished by this sample,
// if any. Samples must arrive in increasing timestamp order.
func (e *Engine) Observe(s types.Sample) (types.Cue, bool) {
	if e.flushed || !s.HasText() {
		return types.Cue{}, false
	}
	if strings.TrimSpace(s.Text) == "" {
		return types.Cue{}, false
	}
	e.seen = true

	e.duplicate = Similar(s.Text, e.lastText, e.opts.Threshold)
	if e.duplicate {
		e.repeats++
	} else {
		e.lastChange = s.At
	}

	var (
		cue  types.Cue
		emit bool
	)
	if e.repeats > 0 && !e.duplicate {
		e.cues++
		cue = types.Cue{
			Index: e.cues,
			Start: s.At - e.opts.Step - time.Duration(e.repeats)*e.opts.Step,
			End:   s.At,
			Text:  e.lastText,
		}
		emit = true
		e.duplicate = true
		e.repeats = 0
	}
	e.lastText = s.Text
	return cue, emit
}

// Flush closes the stream. The trailing subtitle has no later sample to bound
// it, so it is shown for Tail from its last change. Flush fires at most once
// and never when no text was observed.
func (e *Engine) Flush() (types.Cue, bool) {
	if e.flushed {
		return types.Cue{}, false
	}
	e.flushed = true
	if !e.seen {
		return types.Cue{}, false
	}
	e.cues++
	return types.Cue{
		Index: e.cues,
		Start: e.lastChange,
		End:   e.lastChange + e.opts.Tail,
		Text:  e.lastText,
	}, true
}

// Emitted returns how many cues the engine produced so far.
func (e *Engine) Emitted() int { return e.cues }

// Similar reports whether text reads as the same subtitle as baseline: at
// least threshold of text's tokens, counted once each, appear in baseline.
func Similar(text, baseline string, threshold float64) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return false
	}
	base := make(map[string]struct{})
	for _, t := range strings.Fields(baseline) {
		base[t] = struct{}{}
	}
	common := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := base[t]; ok {
			common[t] = struct{}{}
		}
	}
	return float64(len(common)) >= float64(len(tokens))*threshold
}
