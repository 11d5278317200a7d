package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/vidsub/internal/types"
	"github.com/google/shlex"
)

type Adapter struct {
	bin         string
	tessdataDir string
	extraArgs   []string
}

func New(binPath, tessdataDir string) *Adapter {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &Adapter{bin: binPath, tessdataDir: tessdataDir}
}

func (a *Adapter) WithExtraArgs(raw string) (*Adapter, error) {
	if strings.TrimSpace(raw) == "" {
		return a, nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse tesseract args: %w", err)
	}
	a.extraArgs = args
	return a, nil
}

func (a *Adapter) Recognize(ctx context.Context, imagePath, lang string) types.Recognition {
	args := []string{imagePath, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	if a.tessdataDir != "" {
		args = append(args, "--tessdata-dir", a.tessdataDir)
	}
	args = append(args, a.extraArgs...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return types.FailedResult(fmt.Errorf("tesseract failed: %w\n%s", err, strings.TrimSpace(stderr.String())))
	}
	return Classify(stdout.String())
}

// Classify maps raw OCR output to a recognition result. Output that is empty
// or starts with whitespace carries no subtitle; blank frames come back as a
// lone form feed or newline.
func Classify(raw string) types.Recognition {
	if raw == "" {
		return types.EmptyResult()
	}
	r, _ := utf8.DecodeRuneInString(raw)
	if unicode.IsSpace(r) {
		return types.EmptyResult()
	}
	text := strings.TrimRightFunc(raw, unicode.IsSpace)
	if len(strings.Fields(text)) == 0 {
		return types.EmptyResult()
	}
	return types.TextResult(text)
}
