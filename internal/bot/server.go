package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/vidsub/internal/jobstore"
	"github.com/forPelevin/vidsub/internal/logging"
	"github.com/forPelevin/vidsub/internal/pipeline"
	"github.com/forPelevin/vidsub/internal/progress"
	"github.com/forPelevin/vidsub/internal/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const greeting = `Hi
I am Subtitle Extractor Bot.

> I can extract hard-coded subtitle from videos.

Send me a video to get started.
`

const (
	msgCanceled     = "canceled successfully."
	msgCannotCancel = "can't cancel. maybe there wasn't any progress in process."
	msgNoText       = "no text detected"
)

// Runner runs one extraction. Defaults to a validated pipeline.Run.
type Runner func(ctx context.Context, cfg pipeline.Config) (pipeline.Result, error)

func runPipeline(ctx context.Context, cfg pipeline.Config) (pipeline.Result, error) {
	if err := cfg.Validate(); err != nil {
		return pipeline.Result{}, fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

type Options struct {
	// Base carries tool paths, sampling parameters and the default language
	// and crop setting. Input, Name, OutDir and Progress are set per session.
	Base           pipeline.Config
	DataDir        string
	MaxJobs        int
	MaxUploadBytes int64
	Jobs           *jobstore.Store
	Logger         *logrus.Logger
	Run            Runner

	// Retention is how long a finished session and its files are kept.
	Retention time.Duration
}

type Server struct {
	opts     Options
	log      *logrus.Logger
	sem      chan struct{}
	upgrader websocket.Upgrader
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session

	stopReaper chan struct{}
	closeOnce  sync.Once
}

func New(opts Options) *Server {
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = 1
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 512 << 20
	}
	if opts.Run == nil {
		opts.Run = runPipeline
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		opts:       opts,
		log:        logger,
		sem:        make(chan struct{}, opts.MaxJobs),
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessions:   map[string]*session{},
		stopReaper: make(chan struct{}),
	}
	go s.reapLoop()
	return s
}

// Close stops the reaper. Running extractions are left to CancelAll and Wait.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.stopReaper) })
}

func (s *Server) reapLoop() {
	every := s.opts.Retention / 4
	if every > time.Minute {
		every = time.Minute
	}
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			s.reap(now)
		case <-s.stopReaper:
			return
		}
	}
}

// reap forgets sessions that finished more than Retention before now and
// removes their files.
func (s *Server) reap(now time.Time) int {
	cutoff := now.Add(-s.opts.Retention)
	var expired []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.expired(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()
	for _, sess := range expired {
		if err := os.RemoveAll(sess.dir); err != nil {
			s.log.WithError(err).WithField("session", sess.id).Warn("remove expired session")
		}
	}
	if len(expired) > 0 {
		s.log.WithField("sessions", len(expired)).Debug("expired sessions removed")
	}
	return len(expired)
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/start", s.handleStart).Methods(http.MethodGet)
	r.HandleFunc("/videos", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/result", s.handleResult).Methods(http.MethodGet)
	r.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", s.handleJob).Methods(http.MethodGet)
	return r
}

// Wait blocks until every started extraction has finished.
func (s *Server) Wait() { s.wg.Wait() }

// CancelAll stops every running extraction.
func (s *Server) CancelAll() {
	s.mu.Lock()
	list := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.Unlock()
	for _, sess := range list {
		sess.requestCancel()
	}
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, greeting)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	file, hdr, err := r.FormFile("video")
	if err != nil {
		http.Error(w, "missing video file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isVideo(hdr.Header.Get("Content-Type"), hdr.Filename) {
		http.Error(w, "not a video", http.StatusUnsupportedMediaType)
		return
	}

	lang := strings.TrimSpace(r.FormValue("lang"))
	if lang == "" {
		lang = s.opts.Base.Language
	}
	crop := s.opts.Base.Crop
	if v := strings.TrimSpace(r.FormValue("crop")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "crop must be a boolean", http.StatusBadRequest)
			return
		}
		crop = b
	}

	id := uuid.NewString()
	dir := filepath.Join(s.opts.DataDir, "sessions", id)
	uploadDir := filepath.Join(dir, "upload")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	base := filepath.Base(hdr.Filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "subtitles"
	}
	input := filepath.Join(uploadDir, "video"+strings.ToLower(filepath.Ext(base)))
	if err := saveUpload(file, input); err != nil {
		_ = os.RemoveAll(dir)
		http.Error(w, "store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	sess := newSession(id, dir, name, lang)
	ctx, cancel := context.WithCancel(context.Background())
	sess.setRunning(cancel)
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.opts.Jobs != nil {
		if err := s.opts.Jobs.Create(r.Context(), id, base, lang); err != nil {
			s.log.WithError(err).WithField("session", id).Warn("record job")
		}
	}

	cfg := s.opts.Base
	cfg.Input = input
	cfg.Name = name
	cfg.Language = lang
	cfg.Crop = crop
	cfg.OutDir = dir
	cfg.Flat = true

	s.wg.Add(1)
	go s.process(ctx, cancel, sess, cfg)

	s.log.WithFields(logrus.Fields{"session": id, "file": base, "lang": lang, "crop": crop}).Info("video received")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id,
		"status":     string(StateQueued),
		"ws":         "/sessions/" + id + "/ws",
	})
}

func (s *Server) process(ctx context.Context, cancel context.CancelFunc, sess *session, cfg pipeline.Config) {
	defer s.wg.Done()
	defer cancel()
	logger := s.log.WithField("session", sess.id)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.finish(sess, pipeline.Result{}, ctx.Err())
		return
	}
	defer func() { <-s.sem }()

	sess.markExtracting()
	sess.publish(Event{Type: "status", Status: string(StateExtracting), Message: "Now Extracting.."})

	cfg.Logf = func(format string, args ...any) { logger.Infof(format, args...) }
	cfg.Progress = progress.NewSampled(progress.Func(func(fraction float64, status string) {
		sess.publish(Event{Type: "progress", Percent: float64(int(fraction*1000)) / 10, Status: status})
	}), 5)

	res, err := s.opts.Run(ctx, cfg)
	_ = os.RemoveAll(filepath.Join(sess.dir, "upload"))
	s.finish(sess, res, err)
}

func (s *Server) finish(sess *session, res pipeline.Result, err error) {
	logger := s.log.WithField("session", sess.id)
	status := jobstore.StatusDone
	ev := Event{Type: string(StateDone), Cues: res.Cues}

	switch {
	case err == nil:
		filename := sess.name + filepath.Ext(res.Subtitles)
		sess.setResult(res.Subtitles, filename)
		ev.Download = "/sessions/" + sess.id + "/result"
		ev.Message = fmt.Sprintf("extracted %d subtitles", res.Cues)
		logger.WithField("cues", res.Cues).Info("extraction done")
	case errors.Is(err, usecase.ErrNoTextDetected):
		status = jobstore.StatusEmpty
		ev = Event{Type: string(StateEmpty), Message: msgNoText}
		logger.Info(msgNoText)
	case errors.Is(err, context.Canceled):
		status = jobstore.StatusCanceled
		ev = Event{Type: string(StateCanceled), Message: msgCanceled}
		logger.Info("extraction canceled")
	default:
		status = jobstore.StatusFailed
		ev = Event{Type: string(StateFailed), Message: err.Error()}
		logger.WithError(err).Error("extraction failed")
	}
	if err != nil {
		_ = os.RemoveAll(sess.dir)
	}

	if s.opts.Jobs != nil {
		if jerr := s.opts.Jobs.Finish(context.Background(), sess.id, status, res.Cues, err); jerr != nil {
			logger.WithError(jerr).Warn("record job result")
		}
	}
	sess.publish(ev)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
	}
	return sess, ok
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	state, _, _ := sess.snapshot()
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sess.id,
		"status":     string(state),
		"language":   sess.language,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !sess.requestCancel() {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, msgCannotCancel)
		return
	}
	_, _ = io.WriteString(w, msgCanceled)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	state, path, filename := sess.snapshot()
	if state != StateDone || path == "" {
		http.Error(w, "no subtitles for session in state "+string(state), http.StatusConflict)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "subtitles unavailable", http.StatusGone)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, "subtitles unavailable", http.StatusGone)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeContent(w, r, filename, st.ModTime(), f)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Jobs == nil {
		writeJSON(w, http.StatusOK, []jobstore.Job{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.opts.Jobs.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []jobstore.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.opts.Jobs == nil {
		http.Error(w, "job history disabled", http.StatusNotFound)
		return
	}
	job, err := s.opts.Jobs.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, jobstore.ErrNotFound) {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type clientMessage struct {
	Op string `json:"op"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Op == "cancel" {
				sess.requestCancel()
			}
		}
	}()

	sent := 0
	for {
		events, wake, done := sess.since(sent)
		for _, ev := range events {
			// the client may have gone away; progress is best effort
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		sent += len(events)
		if done {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		select {
		case <-wake:
		case <-gone:
			return
		}
	}
}

func isVideo(contentType, filename string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "application/octet-stream" {
		return strings.HasPrefix(mt, "video/")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if videoExt[ext] {
		return true
	}
	mt, _, _ := mime.ParseMediaType(mime.TypeByExtension(ext))
	return strings.HasPrefix(mt, "video/")
}

// videoExt covers uploads sent as application/octet-stream on hosts without
// a system mime table.
var videoExt = map[string]bool{
	".mp4": true, ".m4v": true, ".mkv": true, ".webm": true,
	".mov": true, ".avi": true, ".ts": true, ".flv": true,
}

func saveUpload(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
