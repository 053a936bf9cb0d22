// Package enroll implements single-shot capture of a new identity.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/session"
)

var (
	ErrNotSingleFace = errors.New("enrollment requires exactly one face")
	ErrEmptyName     = errors.New("name is required")
)

// ImageAnalyzer analyzes one encoded image.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte) ([]face.Observation, error)
}

// Matcher resolves one embedding.
type Matcher interface {
	Match(e face.Embedding) (face.MatchResult, error)
}

// Enroller stages and confirms enrollments on a session.
type Enroller struct {
	analyzer ImageAnalyzer
	matcher  Matcher
	logger   *slog.Logger
}

// New creates an Enroller. A nil logger uses slog.Default.
func New(a ImageAnalyzer, m Matcher, logger *slog.Logger) *Enroller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enroller{analyzer: a, matcher: m, logger: logger}
}

// Capture analyzes a single photo. Exactly one face stages its embedding and
// match on the session; any other count returns ErrNotSingleFace and leaves
// the session untouched.
func (e *Enroller) Capture(ctx context.Context, sess *session.Session, image []byte) (face.MatchResult, error) {
	obs, err := e.analyzer.AnalyzeImage(ctx, image)
	if err != nil {
		return face.MatchResult{}, fmt.Errorf("analyze capture: %w", err)
	}
	if len(obs) != 1 {
		return face.MatchResult{}, fmt.Errorf("%w: found %d", ErrNotSingleFace, len(obs))
	}

	match, err := e.matcher.Match(obs[0].Embedding)
	if err != nil {
		return face.MatchResult{}, fmt.Errorf("match capture: %w", err)
	}

	if err := sess.StageEnrollment(obs[0].Embedding, match); err != nil {
		return face.MatchResult{}, err
	}

	e.logger.Info("enroll: capture staged",
		"session", sess.ID,
		"label", match.Label,
		"distance", match.Distance)
	return match, nil
}

// Confirm accepts a name for the staged capture and returns the normalized
// label. The reference profile is not updated.
func (e *Enroller) Confirm(sess *session.Session, name string) (string, error) {
	label := NormalizeLabel(name)
	if label == "" {
		return "", ErrEmptyName
	}

	pending, err := sess.ConfirmEnrollment()
	if err != nil {
		return "", err
	}

	e.logger.Warn("enroll: profile write-back is not supported, enrollment discarded",
		"session", sess.ID,
		"label", label,
		"dim", len(pending.Embedding))
	return label, nil
}
