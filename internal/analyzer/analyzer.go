// Package analyzer turns a frame into the faces found in it.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/inference"
)

var (
	// ErrNoFrame means there was nothing to analyze. It is distinct from a
	// frame that contains zero faces.
	ErrNoFrame = errors.New("no frame available")

	ErrCountMismatch     = errors.New("detection and embedding counts differ")
	ErrInconsistentEmbed = errors.New("embeddings have inconsistent dimensions")
)

// Engine runs face detection and embedding on an encoded image.
type Engine interface {
	Detect(ctx context.Context, image []byte, inputSize int) (*inference.Result, error)
}

// Options controls frame preparation.
type Options struct {
	InputSize   int
	FrameWidth  int
	FrameHeight int
}

// OptionsFromConfig maps the capture section of the configuration.
func OptionsFromConfig(cfg config.CaptureConfig) Options {
	return Options{
		InputSize:   cfg.InputSize,
		FrameWidth:  cfg.FrameWidth,
		FrameHeight: cfg.FrameHeight,
	}
}

// Analyzer produces observations from frames. It holds no per-frame state.
type Analyzer struct {
	engine Engine
	opts   Options
}

// New creates an analyzer backed by engine.
func New(engine Engine, opts Options) *Analyzer {
	return &Analyzer{engine: engine, opts: opts}
}

// Options returns the analyzer options.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze snapshots the source and analyzes the frame.
func (a *Analyzer) Analyze(ctx context.Context, src capture.FrameSource) ([]face.Observation, error) {
	data, err := src.Snapshot(ctx)
	if errors.Is(err, capture.ErrNotReady) {
		return nil, ErrNoFrame
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return a.AnalyzeImage(ctx, data)
}

// AnalyzeImage returns one observation per face in engine order. A frame
// without faces yields an empty, non-nil slice.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte) ([]face.Observation, error) {
	if len(data) == 0 {
		return nil, ErrNoFrame
	}

	frame, err := PrepareFrame(data, a.opts.FrameWidth, a.opts.FrameHeight)
	if err != nil {
		return nil, err
	}

	res, err := a.engine.Detect(ctx, frame, a.opts.InputSize)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	if len(res.Detections) != len(res.Embeddings) || res.Reported != len(res.Detections) {
		return nil, fmt.Errorf("%w: reported %d, %d detections, %d embeddings",
			ErrCountMismatch, res.Reported, len(res.Detections), len(res.Embeddings))
	}

	obs := make([]face.Observation, len(res.Detections))
	for i, det := range res.Detections {
		e := res.Embeddings[i]
		if len(e) != len(res.Embeddings[0]) {
			return nil, fmt.Errorf("%w: face %d has %d, face 0 has %d",
				ErrInconsistentEmbed, i, len(e), len(res.Embeddings[0]))
		}
		obs[i] = face.Observation{Detection: det, Embedding: e}
	}
	return obs, nil
}
