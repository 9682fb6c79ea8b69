// Package editor implements the debounced auto-save cycle of a page editor
// independently of any UI.
package editor

import (
	"context"
	"sync"
	"time"

	"note-drop/pkg/config"
	"note-drop/pkg/logger"
)

type Status string

const (
	StatusSaved  Status = "saved"
	StatusDirty  Status = "dirty" // edited, debounce timer pending
	StatusSaving Status = "saving"
	StatusError  Status = "error"
)

// Indicator folds the state into the three values an editor shows.
func (s Status) Indicator() string {
	switch s {
	case StatusDirty, StatusSaving:
		return "saving"
	case StatusError:
		return "error"
	default:
		return "saved"
	}
}

func (s Status) Label() string {
	switch s.Indicator() {
	case "saving":
		return "Saving..."
	case "error":
		return "Save failed"
	default:
		return "Saved"
	}
}

// Persister stores the text of a page. store.Store and client.Client both
// satisfy it.
type Persister interface {
	Put(ctx context.Context, slug, markdown string) error
}

type Option func(*Session)

func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithStatusHook registers fn to be called after every status change. fn
// runs without the session lock held.
func WithStatusHook(fn func(Status)) Option {
	return func(s *Session) { s.onStatus = fn }
}

// Session tracks the text of one page and saves it once edits pause for
// the debounce interval. At most one save is in flight; edits made while a
// save is running start another cycle when it resolves. A failed save is
// not retried until the text changes again.
type Session struct {
	slug      string
	persister Persister
	debounce  time.Duration
	log       *logger.Logger
	onStatus  func(Status)

	mu          sync.Mutex
	text        string
	lastSaved   string
	status      Status
	timer       *time.Timer
	timerActive bool
	gen         uint64
	inFlight    bool
	done        chan struct{} // closed when the in-flight save resolves
	closed      bool
}

func NewSession(slug, initial string, p Persister, opts ...Option) *Session {
	s := &Session{
		slug:      slug,
		persister: p,
		debounce:  config.DefaultDebounce,
		log:       logger.Nop(),
		text:      initial,
		lastSaved: initial,
		status:    StatusSaved,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("editor").WithSlug(slug)
	return s
}

func (s *Session) Slug() string { return s.slug }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) LastSaved() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// SetText records an edit. Text equal to the last saved text cancels any
// pending save; anything else restarts the debounce timer.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.text = text

	changed := false
	if text == s.lastSaved {
		s.stopTimerLocked()
		if !s.inFlight {
			changed = s.setStatusLocked(StatusSaved)
		}
	} else {
		s.startTimerLocked()
		if !s.inFlight {
			changed = s.setStatusLocked(StatusDirty)
		}
	}
	status := s.status
	s.mu.Unlock()

	if changed {
		s.notify(status)
	}
}

// Flush saves pending text immediately instead of waiting for the timer.
// A save already in flight is awaited first, then any newer text is saved.
// It is a no-op when nothing changed.
func (s *Session) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		s.stopTimerLocked()
		if s.inFlight {
			done := s.done
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if s.closed || s.text == s.lastSaved {
			s.mu.Unlock()
			return nil
		}
		snapshot := s.beginSaveLocked()
		s.mu.Unlock()

		s.notify(StatusSaving)
		return s.save(ctx, snapshot)
	}
}

// Close stops the timer. A save already sent is not aborted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	s.gen++
	gen := s.gen
	s.timerActive = true
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// a callback that already started sees a stale generation and exits
	s.gen++
	s.timerActive = false
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.timerActive = false

	// the running save reschedules when it resolves
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	if s.text == s.lastSaved {
		changed := s.setStatusLocked(StatusSaved)
		s.mu.Unlock()
		if changed {
			s.notify(StatusSaved)
		}
		return
	}

	snapshot := s.beginSaveLocked()
	s.mu.Unlock()

	s.notify(StatusSaving)
	_ = s.save(context.Background(), snapshot)
}

func (s *Session) beginSaveLocked() string {
	s.inFlight = true
	s.done = make(chan struct{})
	s.status = StatusSaving
	return s.text
}

func (s *Session) save(ctx context.Context, snapshot string) error {
	start := time.Now()
	err := s.persister.Put(ctx, s.slug, snapshot)

	s.mu.Lock()
	s.inFlight = false
	close(s.done)
	next := StatusSaved
	if err != nil {
		next = StatusError
		s.log.Warnw("Save failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	} else {
		s.lastSaved = snapshot
		s.log.Debugw("Saved", "bytes", len(snapshot), "duration_ms", time.Since(start).Milliseconds())
		if s.text != s.lastSaved {
			next = StatusDirty
		}
	}

	// edits made while the request was out start a new cycle
	if !s.closed && !s.timerActive && s.text != snapshot && s.text != s.lastSaved {
		s.startTimerLocked()
	}
	changed := s.setStatusLocked(next)
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	return err
}

func (s *Session) setStatusLocked(next Status) bool {
	if s.status == next {
		return false
	}
	s.status = next
	return true
}

func (s *Session) notify(status Status) {
	if s.onStatus != nil {
		s.onStatus(status)
	}
}
