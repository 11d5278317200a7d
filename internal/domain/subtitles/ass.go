package subtitles

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/forPelevin/vidsub/internal/types"
)

type assWriter struct {
	w      io.Writer
	header bool
}

// NewASSWriter writes an Advanced SubStation script with one Dialogue line
// per cue. The header goes out with the first cue.
func NewASSWriter(w io.Writer) Writer {
	return &assWriter{w: w}
}

func (a *assWriter) WriteCue(c types.Cue) error {
	var b strings.Builder
	if !a.header {
		b.WriteString(assHeader())
		b.WriteString("\n\n[Events]\n")
		b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	}
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(c.Start))
	b.WriteString(",")
	b.WriteString(assTime(c.End))
	b.WriteString(",Default,,0,0,0,,")
	b.WriteString(sanitizeASS(c.Text))
	b.WriteString("\n")
	if _, err := io.WriteString(a.w, b.String()); err != nil {
		return err
	}
	a.header = true
	return nil
}

func (a *assWriter) Close() error { return closeIfCloser(a.w) }

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Arial, 56, &H00FFFFFF, &H000000FF, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 40,40,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

// OCR output keeps its line breaks; ASS wants them as \N.
func sanitizeASS(s string) string {
	s = strings.TrimSpace(cueLines(s))
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.ReplaceAll(s, "\n", "\\N")
}
