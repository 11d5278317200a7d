package tessdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func modelServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "no agent", http.StatusForbidden)
			return
		}
		if r.URL.Path != "/tessdata/eng.traineddata" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("model-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsure_DownloadsOnceAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := modelServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "models")
	s := New(dir, srv.URL+"/tessdata/")

	p, err := s.Ensure(context.Background(), "eng")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p != filepath.Join(dir, "eng.traineddata") {
		t.Fatalf("unexpected path %s", p)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "model-bytes" {
		t.Fatalf("unexpected model contents %q (%v)", string(b), err)
	}
	if _, err := s.Ensure(context.Background(), "eng"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one download, got %d", hits.Load())
	}
}

func TestEnsure_ConcurrentCallersShareDownload(t *testing.T) {
	var hits atomic.Int64
	srv := modelServer(t, &hits)
	s := New(t.TempDir(), srv.URL+"/tessdata")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ensure(context.Background(), "eng")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one download, got %d", hits.Load())
	}
}

func TestEnsure_UnsupportedLanguage(t *testing.T) {
	var hits atomic.Int64
	srv := modelServer(t, &hits)
	dir := t.TempDir()
	s := New(dir, srv.URL+"/tessdata")

	_, err := s.Ensure(context.Background(), "xyz")
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "xyz.traineddata")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no model file, stat err=%v", statErr)
	}
}

func TestEnsure_RejectsPathLikeCodes(t *testing.T) {
	s := New(t.TempDir(), "")
	for _, lang := range []string{"", "../eng", "eng/x", "e ng"} {
		if _, err := s.Ensure(context.Background(), lang); err == nil {
			t.Fatalf("expected error for %q", lang)
		}
	}
}

func TestCheckLanguage(t *testing.T) {
	for _, lang := range []string{"eng", "fas", "deu", "en"} {
		if err := CheckLanguage(lang); err != nil {
			t.Fatalf("CheckLanguage(%q): %v", lang, err)
		}
	}
	if err := CheckLanguage("zzzz"); err == nil {
		t.Fatalf("expected error for zzzz")
	}
}
