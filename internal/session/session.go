// Package session owns the per-viewer state of the capture-detect-match
// cycle. All mutation goes through ordering-checked methods on Session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/face"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrStale          = errors.New("stale pass result")
	ErrMisaligned     = errors.New("observations and matches differ in length")
	ErrNothingPending = errors.New("no enrollment pending")
)

// Session is one mounted viewer.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.RWMutex
	state  State
	closed bool

	generation atomic.Uint64 // last generation handed out by NextGeneration
	frames     *capture.LatestFrame
	events     Broadcaster
	logger     *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session in the loading state.
func New(id string, opts ...Option) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		state:     State{Loading: true, UpdatedAt: time.Now()},
		frames:    capture.NewLatestFrame(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", id)
	return s
}

// Frames returns the mailbox clients push frames into.
func (s *Session) Frames() *capture.LatestFrame { return s.frames }

// Events returns the session's event broadcaster.
func (s *Session) Events() *Broadcaster { return &s.events }

// NextGeneration tags a new pass. Generations increase strictly in start order.
func (s *Session) NextGeneration() uint64 {
	return s.generation.Add(1)
}

// update runs fn under the write lock unless the session is closed, then
// publishes the resulting state.
func (s *Session) update(eventType string, fn func(st *State) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.UpdatedAt = time.Now()
	snap := s.state.clone()
	s.mu.Unlock()

	s.events.SendEvent(Event{Type: eventType, State: snap})
	return nil
}

// Apply stores the result of pass gen. Results from a pass that is not newer
// than the last applied one are discarded with ErrStale; after Close every
// call returns ErrClosed and changes nothing.
func (s *Session) Apply(gen uint64, obs []face.Observation, matches []face.MatchResult) error {
	if len(obs) != len(matches) {
		return fmt.Errorf("%w: %d observations, %d matches", ErrMisaligned, len(obs), len(matches))
	}
	return s.update(EventOverlay, func(st *State) error {
		if gen <= st.Generation {
			return fmt.Errorf("%w: generation %d, applied %d", ErrStale, gen, st.Generation)
		}
		st.Generation = gen
		st.Observations = obs
		st.Matches = matches
		return nil
	})
}

// SetReady leaves the loading state.
func (s *Session) SetReady() error {
	return s.update(EventState, func(st *State) error {
		st.Loading = false
		st.Error = ""
		return nil
	})
}

// SetLoadError keeps the session loading and records why.
func (s *Session) SetLoadError(err error) error {
	return s.update(EventState, func(st *State) error {
		st.Loading = true
		st.Error = err.Error()
		return nil
	})
}

// SetFacingMode records the selected camera.
func (s *Session) SetFacingMode(mode, camera string) error {
	return s.update(EventState, func(st *State) error {
		st.FacingMode = mode
		st.Camera = camera
		return nil
	})
}

// StageEnrollment stores a single-face capture and reveals the name input.
// A newer capture replaces an unconfirmed one.
func (s *Session) StageEnrollment(e face.Embedding, match face.MatchResult) error {
	return s.update(EventEnroll, func(st *State) error {
		st.Pending = &Pending{Embedding: e, Match: match, StagedAt: time.Now()}
		st.ShowInput = true
		return nil
	})
}

// ConfirmEnrollment hides the name input and returns the cleared candidate.
func (s *Session) ConfirmEnrollment() (Pending, error) {
	var pending Pending
	err := s.update(EventEnroll, func(st *State) error {
		if st.Pending == nil {
			return ErrNothingPending
		}
		pending = *st.Pending
		st.Pending = nil
		st.ShowInput = false
		return nil
	})
	return pending, err
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Close marks the session destroyed and detaches all event listeners.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state.Closed = true
	s.state.UpdatedAt = time.Now()
	snap := s.state.clone()
	s.mu.Unlock()

	s.events.Close(Event{Type: EventClosed, State: snap})
	s.logger.Info("session: closed")
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }
