// Package live manages mounted viewer sessions and their capture schedulers.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/enroll"
	"github.com/kozaktomas/facescan/internal/matcher"
	"github.com/kozaktomas/facescan/internal/scheduler"
	"github.com/kozaktomas/facescan/internal/session"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrModelsNotLoaded = errors.New("models are not loaded")
	ErrShutdown        = errors.New("manager is shut down")
)

// ModelLoader loads inference weights.
type ModelLoader interface {
	LoadModels(ctx context.Context) error
}

// Live couples a session with the scheduler driving it.
type Live struct {
	Session   *session.Session
	Scheduler *scheduler.Scheduler

	selectOnce sync.Once
	facingMode string
	selectErr  error
}

// FacingMode returns the selected facing mode, empty before selection.
func (l *Live) FacingMode() string {
	return l.Session.Snapshot().FacingMode
}

// Manager owns every live session.
type Manager struct {
	analyzer *analyzer.Analyzer
	matcher  *matcher.Matcher
	enroller *enroll.Enroller
	models   ModelLoader
	capture  config.CaptureConfig
	logger   *slog.Logger

	ctx    context.Context // parent of every scheduler
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Live
	loaded   bool
	loadErr  error
	shutdown bool
}

// NewManager creates a manager. Models are not loaded until LoadModels.
func NewManager(a *analyzer.Analyzer, m *matcher.Matcher, models ModelLoader, cfg config.CaptureConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		analyzer: a,
		matcher:  m,
		enroller: enroll.New(a, m, logger),
		models:   models,
		capture:  cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Live),
	}
}

// LoadModels loads the inference models once and updates every session.
func (m *Manager) LoadModels(ctx context.Context) error {
	err := m.models.LoadModels(ctx)

	m.mu.Lock()
	m.loaded = err == nil
	m.loadErr = err
	lives := m.listLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("live: model loading failed", "error", err)
	} else {
		m.logger.Info("live: models loaded")
	}
	for _, l := range lives {
		m.applyLoadState(l.Session)
	}
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	return nil
}

func (m *Manager) applyLoadState(s *session.Session) {
	m.mu.RLock()
	loaded, loadErr := m.loaded, m.loadErr
	m.mu.RUnlock()

	switch {
	case loaded:
		_ = s.SetReady()
	case loadErr != nil:
		_ = s.SetLoadError(loadErr)
	}
}

// Ready reports whether models are loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Create mounts a new session.
func (m *Manager) Create() (*Live, error) {
	id := uuid.New().String()
	sess := session.New(id, session.WithLogger(m.logger))

	opts := scheduler.OptionsFromConfig(m.capture)
	opts.Logger = sess.Logger()
	l := &Live{
		Session:   sess,
		Scheduler: scheduler.New(sess.Frames(), m.analyzer, m.matcher, sess, opts),
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	m.sessions[id] = l
	m.mu.Unlock()

	m.applyLoadState(sess)
	m.logger.Info("live: session created", "session", id)
	return l, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Live, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

// SelectDevices picks the facing mode from the device list and starts the
// scheduler. Selection runs once per session; later calls return the first
// result.
func (m *Manager) SelectDevices(id string, devices []capture.Device) (string, error) {
	l, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if !m.Ready() {
		return "", ErrModelsNotLoaded
	}

	l.selectOnce.Do(func() {
		mode := capture.SelectFacingMode(devices)
		if err := l.Session.SetFacingMode(mode, capture.CameraLabel(mode)); err != nil {
			l.selectErr = err
			return
		}
		if err := l.Scheduler.Start(m.ctx); err != nil {
			l.selectErr = err
			return
		}
		l.facingMode = mode
		m.logger.Info("live: facing mode selected",
			"session", id,
			"facing_mode", mode,
			"video_inputs", len(capture.VideoInputs(devices)))
	})
	return l.facingMode, l.selectErr
}

// Delete unmounts a session: the scheduler stops and the state is closed.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	l, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	listeners := l.Session.Events().Listeners()
	l.Scheduler.Stop()
	l.Session.Close()
	m.logger.Info("live: session deleted",
		"session", id,
		"dropped_frames", l.Session.Frames().Drops(),
		"last_frame", l.Session.Frames().Updated(),
		"listeners", listeners)
	return nil
}

func (m *Manager) listLocked() []*Live {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Live, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.sessions[id])
	}
	return out
}

// Count returns the number of mounted sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops every scheduler and closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	lives := m.listLocked()
	m.sessions = make(map[string]*Live)
	m.mu.Unlock()

	m.cancel()
	for _, l := range lives {
		l.Scheduler.Stop()
		l.Session.Close()
	}
	for _, l := range lives {
		l.Scheduler.Wait()
	}
	m.logger.Info("live: all sessions closed", "count", len(lives))
}

// Enroller returns the shared enroller.
func (m *Manager) Enroller() *enroll.Enroller { return m.enroller }

// Matcher returns the shared matcher.
func (m *Manager) Matcher() *matcher.Matcher { return m.matcher }

// Analyzer returns the shared analyzer.
func (m *Manager) Analyzer() *analyzer.Analyzer { return m.analyzer }

// FrameSize returns the overlay frame dimensions.
func (m *Manager) FrameSize() (int, int) {
	return m.capture.FrameWidth, m.capture.FrameHeight
}
