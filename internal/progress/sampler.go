package progress

import "strings"

// Sampler suppresses repetitive progress updates while preserving signal
// when the status changes or the percentage crosses a bucket boundary.
type Sampler struct {
	bucketSize float64
	lastStatus string
	lastBucket int
}

// NewSampler constructs a sampler that emits every bucketSize percent
// (default 5%).
func NewSampler(bucketSize float64) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldEmit reports whether an update at fraction (0..1) is worth passing on.
func (s *Sampler) ShouldEmit(fraction float64, status string) bool {
	if s == nil {
		return true
	}
	status = strings.TrimSpace(status)
	emit := false
	if status != "" && status != s.lastStatus {
		s.lastStatus = status
		s.lastBucket = -1
		emit = true
	}
	percent := clamp(fraction) * 100
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
