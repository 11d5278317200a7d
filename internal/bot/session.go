package bot

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateQueued     State = "queued"
	StateExtracting State = "extracting"
	StateDone       State = "done"
	StateEmpty      State = "empty"
	StateFailed     State = "failed"
	StateCanceled   State = "canceled"
)

func (s State) terminal() bool {
	switch s {
	case StateDone, StateEmpty, StateFailed, StateCanceled:
		return true
	}
	return false
}

// Event is one message pushed to websocket subscribers.
type Event struct {
	Type     string  `json:"type"`
	Session  string  `json:"session"`
	Percent  float64 `json:"percent,omitempty"`
	Status   string  `json:"status,omitempty"`
	Message  string  `json:"message,omitempty"`
	Cues     int     `json:"cues,omitempty"`
	Download string  `json:"download,omitempty"`
}

type session struct {
	id       string
	dir      string
	name     string
	language string
	created  time.Time

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	result   string
	filename string
	events   []Event
	wake     chan struct{}
	finished time.Time
}

func newSession(id, dir, name, language string) *session {
	return &session{
		id:       id,
		dir:      dir,
		name:     name,
		language: language,
		created:  time.Now(),
		state:    StateQueued,
		wake:     make(chan struct{}),
	}
}

func (s *session) publish(ev Event) {
	ev.Session = s.id
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() {
		return
	}
	if st := State(ev.Type); st.terminal() {
		s.state = st
		s.cancel = nil
		s.finished = time.Now()
	}
	s.events = append(s.events, ev)
	close(s.wake)
	s.wake = make(chan struct{})
}

// since returns the events after the first n, a channel closed on the next
// publish, and whether the session has finished.
func (s *session) since(n int) ([]Event, <-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	if n < len(s.events) {
		out = append(out, s.events[n:]...)
	}
	return out, s.wake, s.state.terminal()
}

func (s *session) setRunning(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *session) markExtracting() {
	s.mu.Lock()
	if s.state == StateQueued {
		s.state = StateExtracting
	}
	s.mu.Unlock()
}

// requestCancel stops an in-flight run. It reports false when nothing was
// running.
func (s *session) requestCancel() bool {
	s.mu.Lock()
	cancel := s.cancel
	active := cancel != nil && !s.state.terminal()
	s.mu.Unlock()
	if active {
		cancel()
	}
	return active
}

func (s *session) setResult(path, filename string) {
	s.mu.Lock()
	s.result = path
	s.filename = filename
	s.mu.Unlock()
}

func (s *session) snapshot() (State, string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.result, s.filename
}

// expired reports whether the session finished before cutoff.
func (s *session) expired(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.terminal() && s.finished.Before(cutoff)
}
