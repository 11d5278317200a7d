package intervals

import (
	"iter"
	"time"
)

const DefaultStep = 100 * time.Millisecond

// Generate yields sample timestamps for a video that lasts durationSec whole
// seconds. Every second in [0, durationSec] is split into steps, so the last
// timestamp sits one step before durationSec+1. A step that does not divide a
// second is replaced by DefaultStep.
func Generate(durationSec int, step time.Duration) iter.Seq[time.Duration] {
	if durationSec < 0 {
		durationSec = 0
	}
	step = Normalize(step)
	perSecond := int(time.Second / step)
	return func(yield func(time.Duration) bool) {
		for i := 0; i <= durationSec; i++ {
			base := time.Duration(i) * time.Second
			for x := 0; x < perSecond; x++ {
				if !yield(base + time.Duration(x)*step) {
					return
				}
			}
		}
	}
}

// Count returns how many timestamps Generate yields.
func Count(durationSec int, step time.Duration) int {
	if durationSec < 0 {
		durationSec = 0
	}
	return (durationSec + 1) * stepsPerSecond(step)
}

// ValidStep reports whether step splits a second into whole steps.
func ValidStep(step time.Duration) bool {
	return step > 0 && step <= time.Second && time.Second%step == 0
}

// Normalize returns step, or DefaultStep when step is not valid.
func Normalize(step time.Duration) time.Duration {
	if !ValidStep(step) {
		return DefaultStep
	}
	return step
}

func stepsPerSecond(step time.Duration) int {
	return int(time.Second / Normalize(step))
}
