package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kozaktomas/facescan/internal/face"
)

func newTestSession() *Session {
	return New("test", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func onePass(label string) ([]face.Observation, []face.MatchResult) {
	obs := []face.Observation{{Detection: face.Detection{Box: face.BoundingBox{Width: 10, Height: 10}}}}
	matches := []face.MatchResult{{Label: label, Distance: 0.2}}
	return obs, matches
}

func TestNew_StartsLoading(t *testing.T) {
	s := newTestSession()
	st := s.Snapshot()
	if !st.Loading {
		t.Error("expected new session to be loading")
	}
	if st.Observations == nil || st.Matches == nil {
		t.Error("expected empty, non-nil slices in snapshot")
	}
}

func TestApply_DiscardsOlderGenerations(t *testing.T) {
	s := newTestSession()
	first := s.NextGeneration()
	second := s.NextGeneration()

	obs, matches := onePass("bob")
	if err := s.Apply(second, obs, matches); err != nil {
		t.Fatalf("Apply(second): %v", err)
	}

	obs, matches = onePass("alice")
	if err := s.Apply(first, obs, matches); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for older pass, got %v", err)
	}
	if err := s.Apply(second, obs, matches); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for repeated generation, got %v", err)
	}

	st := s.Snapshot()
	if st.Matches[0].Label != "bob" || st.Generation != second {
		t.Errorf("expected later-started pass to remain, got %+v", st.Matches)
	}
}

func TestApply_RejectsMisaligned(t *testing.T) {
	s := newTestSession()
	obs, _ := onePass("x")
	err := s.Apply(s.NextGeneration(), obs, nil)
	if !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
	if st := s.Snapshot(); len(st.Observations) != 0 || st.Generation != 0 {
		t.Errorf("expected state unchanged, got %+v", st)
	}
}

func TestApply_AfterCloseIsNoop(t *testing.T) {
	s := newTestSession()
	gen := s.NextGeneration()
	s.Close()

	obs, matches := onePass("alice")
	if err := s.Apply(gen, obs, matches); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	st := s.Snapshot()
	if len(st.Observations) != 0 || !st.Closed {
		t.Errorf("expected closed, untouched state, got %+v", st)
	}
	if err := s.StageEnrollment(face.Embedding{1}, face.Unknown(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from StageEnrollment, got %v", err)
	}
	s.Close() // idempotent
}

func TestEnrollment(t *testing.T) {
	s := newTestSession()

	if _, err := s.ConfirmEnrollment(); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}

	e := face.Embedding{0.1, 0.2}
	if err := s.StageEnrollment(e, face.Unknown(0.9)); err != nil {
		t.Fatalf("StageEnrollment: %v", err)
	}
	st := s.Snapshot()
	if !st.ShowInput || st.Pending == nil || len(st.Pending.Embedding) != 2 {
		t.Fatalf("expected staged enrollment, got %+v", st)
	}

	pending, err := s.ConfirmEnrollment()
	if err != nil {
		t.Fatalf("ConfirmEnrollment: %v", err)
	}
	if pending.Embedding[1] != 0.2 || !pending.Match.IsUnknown() {
		t.Errorf("unexpected pending %+v", pending)
	}
	st = s.Snapshot()
	if st.ShowInput || st.Pending != nil {
		t.Errorf("expected input hidden and pending cleared, got %+v", st)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestSession()
	obs, matches := onePass("alice")
	if err := s.Apply(s.NextGeneration(), obs, matches); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	st := s.Snapshot()
	st.Matches[0].Label = "mallory"

	if s.Snapshot().Matches[0].Label != "alice" {
		t.Error("mutating a snapshot changed session state")
	}
}

func TestEvents(t *testing.T) {
	s := newTestSession()
	ch := s.Events().AddListener()

	if err := s.SetReady(); err != nil {
		t.Fatalf("SetReady: %v", err)
	}
	ev := <-ch
	if ev.Type != EventState || ev.State.Loading {
		t.Errorf("unexpected event %+v", ev)
	}

	obs, matches := onePass("alice")
	if err := s.Apply(s.NextGeneration(), obs, matches); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ev = <-ch
	if ev.Type != EventOverlay || len(ev.State.Matches) != 1 {
		t.Errorf("unexpected event %+v", ev)
	}

	s.Close()
	ev = <-ch
	if ev.Type != EventClosed {
		t.Errorf("expected closed event, got %s", ev.Type)
	}
	if _, ok := <-ch; ok {
		t.Error("expected listener channel to be closed")
	}

	late := s.Events().AddListener()
	if _, ok := <-late; ok {
		t.Error("expected listener added after close to be closed")
	}
}

func TestSetLoadError(t *testing.T) {
	s := newTestSession()
	if err := s.SetLoadError(errors.New("models unavailable")); err != nil {
		t.Fatalf("SetLoadError: %v", err)
	}
	st := s.Snapshot()
	if !st.Loading || st.Error != "models unavailable" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestBroadcaster_RemoveListener(t *testing.T) {
	var b Broadcaster
	ch := b.AddListener()
	if b.Listeners() != 1 {
		t.Fatalf("expected 1 listener, got %d", b.Listeners())
	}
	b.RemoveListener(ch)
	if b.Listeners() != 0 {
		t.Errorf("expected 0 listeners, got %d", b.Listeners())
	}
	if _, ok := <-ch; ok {
		t.Error("expected removed channel to be closed")
	}
	b.RemoveListener(ch) // unknown channel is ignored
}
