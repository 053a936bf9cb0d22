package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/inference"
	"github.com/kozaktomas/facescan/internal/live"
	"github.com/kozaktomas/facescan/internal/matcher"
)

// stubEngine returns a fixed detection result for every image
type stubEngine struct {
	mu     sync.Mutex
	result *inference.Result
}

func (s *stubEngine) Detect(ctx context.Context, img []byte, inputSize int) (*inference.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, nil
}

func (s *stubEngine) setFaces(embeddings ...face.Embedding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &inference.Result{Reported: len(embeddings)}
	for i, e := range embeddings {
		res.Detections = append(res.Detections, face.Detection{
			Box:   face.BoundingBox{X: float64(10 * i), Y: 10, Width: 40, Height: 40},
			Score: 0.9,
		})
		res.Embeddings = append(res.Embeddings, e)
	}
	s.result = res
}

type stubModels struct{}

func (stubModels) LoadModels(ctx context.Context) error { return nil }

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Capture: config.CaptureConfig{
			Interval:      time.Hour,
			InputSize:     160,
			FrameWidth:    100,
			FrameHeight:   100,
			OverlapPolicy: "latest",
		},
		Match: config.MatchConfig{
			Threshold: 0.6,
			Metric:    "euclidean",
			Strategy:  "mean",
		},
	}
}

// testMatcher knows alice at {1, 0} and bob at {0, 1}
func testMatcher(t *testing.T) *matcher.Matcher {
	t.Helper()
	m, err := matcher.New(face.Profile{
		"alice": {{1, 0}},
		"bob":   {{0, 1}},
	}, matcher.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	return m
}

// newTestManager creates a manager backed by a stub engine. Models are loaded when loaded is true.
func newTestManager(t *testing.T, loaded bool) (*live.Manager, *stubEngine) {
	t.Helper()
	cfg := testConfig()
	engine := &stubEngine{}
	engine.setFaces(face.Embedding{1, 0})

	a := analyzer.New(engine, analyzer.OptionsFromConfig(cfg.Capture))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := live.NewManager(a, testMatcher(t), stubModels{}, cfg.Capture, logger)
	t.Cleanup(manager.Shutdown)

	if loaded {
		if err := manager.LoadModels(context.Background()); err != nil {
			t.Fatalf("failed to load models: %v", err)
		}
	}
	return manager, engine
}

// pngImage returns a small encoded PNG
func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 50, 50))); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// sessionRequest creates a request addressed to a session ID
func sessionRequest(method, path, id string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	return requestWithChiParams(req, map[string]string{"id": id})
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
