package tessdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/text/language"
)

// ErrUnsupportedLanguage is returned when the model repository has no model
// for the requested language code.
var ErrUnsupportedLanguage = errors.New("either the lang code is wrong or the lang is not supported")

const (
	userAgent       = "Mozilla/5.0"
	downloadTimeout = 10 * time.Minute
	lockRetry       = 200 * time.Millisecond
)

var langRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Store keeps one traineddata file per language code and downloads missing
// ones from the model repository on first use.
type Store struct {
	dir     string
	baseURL string
	client  *http.Client
}

func New(dir, baseURL string) *Store {
	return &Store{
		dir:     dir,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: downloadTimeout},
	}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Path(lang string) string {
	return filepath.Join(s.dir, lang+".traineddata")
}

func (s *Store) Ensure(ctx context.Context, lang string) (string, error) {
	if !langRE.MatchString(lang) {
		return "", fmt.Errorf("invalid language code %q", lang)
	}
	p := s.Path(lang)
	if present(p) {
		return p, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	// Concurrent runs for the same language wait for the first download.
	lock := flock.New(filepath.Join(s.dir, "."+lang+".lock"))
	ok, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("lock model %s: %w", lang, err)
	}
	if !ok {
		return "", fmt.Errorf("lock model %s: not acquired", lang)
	}
	defer func() { _ = lock.Unlock() }()

	if present(p) {
		return p, nil
	}
	if err := s.download(ctx, lang, p); err != nil {
		return "", err
	}
	return p, nil
}

func (s *Store) download(ctx context.Context, lang, dst string) error {
	url := s.baseURL + "/" + lang + ".traineddata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model %s: %w", lang, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("download model %s: %w (status %d)", lang, ErrUnsupportedLanguage, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.dir, lang+"-*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("download model %s: %w", lang, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// CheckLanguage reports whether the code before any script suffix
// (chi_sim -> chi) is a known ISO 639 language.
func CheckLanguage(lang string) error {
	base, _, _ := strings.Cut(lang, "_")
	if _, err := language.ParseBase(base); err != nil {
		return fmt.Errorf("language %q: %w", lang, err)
	}
	return nil
}

func present(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}
