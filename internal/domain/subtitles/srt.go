package subtitles

import (
	"fmt"
	"io"
	"time"

	"github.com/forPelevin/vidsub/internal/types"
)

// FormatTimestamp renders d as HH:MM:SS.mmm. Hours grow past two digits for
// very long inputs; negative offsets clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int64(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int64(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int64(d / time.Second)
	d -= time.Duration(s) * time.Second
	milli := int64(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hs, ms, s, milli)
}

type srtWriter struct {
	w io.Writer
}

// NewSRTWriter writes cues as numbered blocks, each one as soon as it is
// handed over.
func NewSRTWriter(w io.Writer) Writer {
	return &srtWriter{w: w}
}

func (s *srtWriter) WriteCue(c types.Cue) error {
	_, err := fmt.Fprintf(s.w, "%d\n%s --> %s\n%s\n\n",
		c.Index,
		FormatTimestamp(c.Start),
		FormatTimestamp(c.End),
		cueLines(c.Text),
	)
	return err
}

func (s *srtWriter) Close() error { return closeIfCloser(s.w) }
