// Package scheduler drives the periodic capture-analyze-match cycle for one session.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/session"
)

// Overlap policies.
const (
	PolicyLatest = "latest" // passes may overlap, only the newest result is kept
	PolicySkip   = "skip"   // a tick is skipped while a pass is in flight
)

const defaultInterval = 1500 * time.Millisecond

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrStopped        = errors.New("scheduler stopped")
)

// Analyzer produces observations from the current frame of a source.
type Analyzer interface {
	Analyze(ctx context.Context, src capture.FrameSource) ([]face.Observation, error)
}

// Matcher resolves every observation to an identity.
type Matcher interface {
	MatchAll(obs []face.Observation) ([]face.MatchResult, error)
}

// Target receives pass results. *session.Session implements it.
type Target interface {
	NextGeneration() uint64
	Apply(gen uint64, obs []face.Observation, matches []face.MatchResult) error
}

// Outcome describes what one pass did.
type Outcome int

const (
	OutcomeApplied   Outcome = iota
	OutcomeNotReady          // no frame yet
	OutcomeSkipped           // another pass was in flight under the skip policy
	OutcomeFailed            // analysis or matching failed; state untouched
	OutcomeDiscarded         // stale generation, stopped scheduler or closed session
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Options configures a Scheduler.
type Options struct {
	Interval      time.Duration
	OverlapPolicy string
	Logger        *slog.Logger
}

// OptionsFromConfig maps the capture section of the configuration.
func OptionsFromConfig(cfg config.CaptureConfig) Options {
	return Options{Interval: cfg.Interval, OverlapPolicy: cfg.OverlapPolicy}
}

// Scheduler runs one pass per tick.
type Scheduler struct {
	source   capture.FrameSource
	analyzer Analyzer
	matcher  Matcher
	target   Target
	interval time.Duration
	policy   string
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	busy   atomic.Bool
	passes sync.WaitGroup
}

// New creates a stopped scheduler.
func New(src capture.FrameSource, a Analyzer, m Matcher, target Target, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.OverlapPolicy != PolicySkip {
		opts.OverlapPolicy = PolicyLatest
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		source:   src,
		analyzer: a,
		matcher:  m,
		target:   target,
		interval: opts.Interval,
		policy:   opts.OverlapPolicy,
		logger:   opts.Logger,
	}
}

// Start begins ticking. Each tick runs a pass on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx)

	s.logger.Info("scheduler: started",
		"interval", s.interval,
		"overlap_policy", s.policy)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.passes.Add(1)
			go func() {
				defer s.passes.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Stop cancels the timer. When it returns no further tick will start and
// passes still in flight will not apply their results.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler: stopped")
}

// Wait blocks until every pass started by the timer has returned.
func (s *Scheduler) Wait() {
	s.passes.Wait()
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Tick runs exactly one capture-analyze-match pass.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	if s.policy == PolicySkip {
		if !s.busy.CompareAndSwap(false, true) {
			s.logger.Debug("scheduler: pass in flight, skipping tick")
			return OutcomeSkipped
		}
		defer s.busy.Store(false)
	}

	gen := s.target.NextGeneration()

	obs, err := s.analyzer.Analyze(ctx, s.source)
	if errors.Is(err, analyzer.ErrNoFrame) {
		return OutcomeNotReady
	}
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeDiscarded
		}
		s.logger.Warn("scheduler: analysis failed", "generation", gen, "error", err)
		return OutcomeFailed
	}

	matches, err := s.matcher.MatchAll(obs)
	if err != nil {
		s.logger.Warn("scheduler: matching failed", "generation", gen, "error", err)
		return OutcomeFailed
	}

	if ctx.Err() != nil {
		s.logger.Debug("scheduler: pass finished after stop, discarding", "generation", gen)
		return OutcomeDiscarded
	}

	err = s.target.Apply(gen, obs, matches)
	switch {
	case err == nil:
		s.logger.Debug("scheduler: pass applied", "generation", gen, "faces", len(obs))
		return OutcomeApplied
	case errors.Is(err, session.ErrStale), errors.Is(err, session.ErrClosed):
		s.logger.Debug("scheduler: pass discarded", "generation", gen, "reason", err)
		return OutcomeDiscarded
	default:
		s.logger.Warn("scheduler: apply failed", "generation", gen, "error", err)
		return OutcomeFailed
	}
}
