package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/matcher"
	"github.com/kozaktomas/facescan/internal/session"
)

var (
	aliceEmbedding = face.Embedding{1, 0}
	bobEmbedding   = face.Embedding{0, 1}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatcher(t *testing.T) *matcher.Matcher {
	t.Helper()
	m, err := matcher.New(face.Profile{
		"alice": {aliceEmbedding},
		"bob":   {bobEmbedding},
	}, matcher.DefaultOptions())
	if err != nil {
		t.Fatalf("matcher.New: %v", err)
	}
	return m
}

func observation(e face.Embedding) []face.Observation {
	return []face.Observation{{
		Detection: face.Detection{Box: face.BoundingBox{X: 10, Y: 10, Width: 50, Height: 50}, Score: 0.9},
		Embedding: e,
	}}
}

// funcAnalyzer adapts a function to the Analyzer interface.
type funcAnalyzer func(ctx context.Context) ([]face.Observation, error)

func (f funcAnalyzer) Analyze(ctx context.Context, src capture.FrameSource) ([]face.Observation, error) {
	return f(ctx)
}

// gatedAnalyzer blocks call i until gates[i] delivers its result.
type gatedAnalyzer struct {
	mu      sync.Mutex
	calls   int
	entered chan int
	gates   []chan []face.Observation
}

func newGatedAnalyzer(n int) *gatedAnalyzer {
	g := &gatedAnalyzer{entered: make(chan int, n)}
	for range n {
		g.gates = append(g.gates, make(chan []face.Observation, 1))
	}
	return g
}

func (g *gatedAnalyzer) Analyze(ctx context.Context, src capture.FrameSource) ([]face.Observation, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()

	g.entered <- i
	return <-g.gates[i], nil
}

func newSession() *session.Session {
	return session.New("s1", session.WithLogger(discardLogger()))
}

func TestTick_AppliesPass(t *testing.T) {
	sess := newSession()
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		return observation(aliceEmbedding), nil
	})
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{Logger: discardLogger()})

	if got := s.Tick(context.Background()); got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}

	st := sess.Snapshot()
	if len(st.Observations) != len(st.Matches) {
		t.Fatalf("observations and matches not aligned: %d vs %d", len(st.Observations), len(st.Matches))
	}
	if st.Matches[0].Label != "alice" {
		t.Errorf("expected alice, got %s", st.Matches[0].Label)
	}
}

func TestTick_NotReadyIsSilent(t *testing.T) {
	sess := newSession()
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		return nil, analyzer.ErrNoFrame
	})
	s := New(capture.NewLatestFrame(), a, testMatcher(t), sess, Options{Logger: discardLogger()})

	if got := s.Tick(context.Background()); got != OutcomeNotReady {
		t.Errorf("expected not_ready, got %s", got)
	}
	if sess.Snapshot().Generation != 0 {
		t.Error("expected no pass applied")
	}
}

func TestTick_ErrorsAreSwallowedAndStateKept(t *testing.T) {
	sess := newSession()
	fail := true
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		if fail {
			return nil, errors.New("inference server unavailable")
		}
		return observation(bobEmbedding), nil
	})
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{Logger: discardLogger()})

	fail = false
	if got := s.Tick(context.Background()); got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}
	before := sess.Snapshot()

	fail = true
	if got := s.Tick(context.Background()); got != OutcomeFailed {
		t.Fatalf("expected failed, got %s", got)
	}

	after := sess.Snapshot()
	if after.Generation != before.Generation || after.Matches[0].Label != "bob" {
		t.Errorf("expected state preserved after failed tick, got %+v", after)
	}
}

func TestTick_MatchErrorFails(t *testing.T) {
	sess := newSession()
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		return observation(face.Embedding{1, 2, 3}), nil
	})
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{Logger: discardLogger()})

	if got := s.Tick(context.Background()); got != OutcomeFailed {
		t.Errorf("expected failed on dimension mismatch, got %s", got)
	}
}

func TestTick_OverlappingPassesLaterStartedWins(t *testing.T) {
	sess := newSession()
	a := newGatedAnalyzer(2)
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{Logger: discardLogger()})
	ctx := context.Background()

	first := make(chan Outcome, 1)
	go func() { first <- s.Tick(ctx) }()
	<-a.entered // first-started pass is in flight

	second := make(chan Outcome, 1)
	go func() { second <- s.Tick(ctx) }()
	<-a.entered

	// The later-started pass resolves first.
	a.gates[1] <- observation(bobEmbedding)
	if got := <-second; got != OutcomeApplied {
		t.Fatalf("expected later-started pass applied, got %s", got)
	}

	// The earlier-started pass resolves afterwards and must not overwrite.
	a.gates[0] <- observation(aliceEmbedding)
	if got := <-first; got != OutcomeDiscarded {
		t.Fatalf("expected earlier-started pass discarded, got %s", got)
	}

	if label := sess.Snapshot().Matches[0].Label; label != "bob" {
		t.Errorf("expected bob from the later-started pass, got %s", label)
	}
}

func TestTick_OverlappingPassesInStartOrder(t *testing.T) {
	sess := newSession()
	a := newGatedAnalyzer(2)
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{Logger: discardLogger()})
	ctx := context.Background()

	first := make(chan Outcome, 1)
	go func() { first <- s.Tick(ctx) }()
	<-a.entered
	second := make(chan Outcome, 1)
	go func() { second <- s.Tick(ctx) }()
	<-a.entered

	a.gates[0] <- observation(aliceEmbedding)
	<-first
	a.gates[1] <- observation(bobEmbedding)
	if got := <-second; got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}

	if label := sess.Snapshot().Matches[0].Label; label != "bob" {
		t.Errorf("expected bob, got %s", label)
	}
}

func TestTick_SkipPolicy(t *testing.T) {
	sess := newSession()
	a := newGatedAnalyzer(2)
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{
		OverlapPolicy: PolicySkip,
		Logger:        discardLogger(),
	})
	ctx := context.Background()

	first := make(chan Outcome, 1)
	go func() { first <- s.Tick(ctx) }()
	<-a.entered

	if got := s.Tick(ctx); got != OutcomeSkipped {
		t.Errorf("expected skipped while busy, got %s", got)
	}

	a.gates[0] <- observation(aliceEmbedding)
	if got := <-first; got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}

	go func() { first <- s.Tick(ctx) }()
	<-a.entered
	a.gates[1] <- observation(bobEmbedding)
	if got := <-first; got != OutcomeApplied {
		t.Errorf("expected next tick to run after the pass finished, got %s", got)
	}
}

func TestStartStop(t *testing.T) {
	sess := newSession()
	var calls atomic.Int32
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		calls.Add(1)
		return observation(aliceEmbedding), nil
	})
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if !s.Running() {
		t.Error("expected scheduler running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", calls.Load())
	}

	s.Stop()
	s.Wait()
	stopped := calls.Load()

	time.Sleep(30 * time.Millisecond)
	if calls.Load() != stopped {
		t.Errorf("expected no ticks after Stop, got %d more", calls.Load()-stopped)
	}
	if s.Running() {
		t.Error("expected scheduler not running")
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	s.Stop() // idempotent
}

func TestStop_DiscardsInFlightPass(t *testing.T) {
	sess := newSession()
	release := make(chan struct{})
	entered := make(chan struct{}, 100)
	a := funcAnalyzer(func(ctx context.Context) ([]face.Observation, error) {
		entered <- struct{}{}
		<-release
		return observation(aliceEmbedding), nil
	})
	s := New(capture.StaticFrame{1}, a, testMatcher(t), sess, Options{
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered

	s.Stop()
	sess.Close()
	close(release)
	s.Wait()

	st := sess.Snapshot()
	if st.Generation != 0 || len(st.Matches) != 0 {
		t.Errorf("expected no mutation after teardown, got %+v", st)
	}
}

func TestStop_BeforeStart(t *testing.T) {
	s := New(capture.StaticFrame{1}, funcAnalyzer(nil), testMatcher(t), newSession(), Options{Logger: discardLogger()})
	s.Stop()
	if err := s.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeApplied:   "applied",
		OutcomeNotReady:  "not_ready",
		OutcomeSkipped:   "skipped",
		OutcomeFailed:    "failed",
		OutcomeDiscarded: "discarded",
		Outcome(99):      "unknown",
	}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("Outcome(%d).String() = %s, want %s", int(o), o.String(), want)
		}
	}
}
