package subtitles

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/forPelevin/vidsub/internal/types"
)

const (
	FormatSRT = "srt"
	FormatASS = "ass"
)

type Writer interface {
	WriteCue(c types.Cue) error
	Close() error
}

func ValidFormat(format string) bool {
	switch normalizeFormat(format) {
	case FormatSRT, FormatASS:
		return true
	}
	return false
}

func Extension(format string) string {
	return "." + normalizeFormat(format)
}

// New wraps w in the writer for format.
func New(w io.Writer, format string) (Writer, error) {
	switch normalizeFormat(format) {
	case FormatSRT:
		return NewSRTWriter(w), nil
	case FormatASS:
		return NewASSWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown subtitle format %q", format)
	}
}

// Create opens path for appending and returns a writer that owns the file.
func Create(path, format string) (Writer, error) {
	if !ValidFormat(format) {
		return nil, fmt.Errorf("unknown subtitle format %q", format)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open subtitles: %w", err)
	}
	return New(f, format)
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return FormatSRT
	}
	return format
}

// cueLines joins the non-blank lines of text with single newlines. OCR
// separates text blocks with blank lines, which would end a subtitle block
// early.
func cueLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimRight(l, " \t\r"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func closeIfCloser(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
