package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

func TestLoadModels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotMethod string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"status":"ok"}`))
			}))
			defer server.Close()

			err := NewClient(server.URL+"/", time.Second).LoadModels(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadModels() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotPath != "/models/load" || gotMethod != http.MethodPost {
				t.Errorf("unexpected request %s %s", gotMethod, gotPath)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	var gotInputSize, gotContentType string
	var gotImage []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		gotInputSize = r.URL.Query().Get("input_size")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotContentType = header.Header.Get("Content-Type")
		gotImage, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"faces_count": 2,
			"faces": [
				{"face_index": 0, "bbox": [10, 20, 110, 140], "det_score": 0.98, "embedding": [0.1, 0.2, 0.3]},
				{"face_index": 1, "bbox": [200, 40, 260, 100], "det_score": 0.71, "embedding": [0.4, 0.5, 0.6]}
			]
		}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, time.Second).Detect(context.Background(), jpegMagic, 160)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if gotInputSize != "160" {
		t.Errorf("expected input_size=160, got %q", gotInputSize)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("expected image/jpeg part, got %q", gotContentType)
	}
	if len(gotImage) != len(jpegMagic) {
		t.Errorf("expected %d image bytes, got %d", len(jpegMagic), len(gotImage))
	}

	if res.Reported != 2 || len(res.Detections) != 2 || len(res.Embeddings) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	box := res.Detections[0].Box
	if box.X != 10 || box.Y != 20 || box.Width != 100 || box.Height != 120 {
		t.Errorf("unexpected box %+v", box)
	}
	if res.Detections[1].Score != 0.71 {
		t.Errorf("expected score 0.71, got %f", res.Detections[1].Score)
	}
	if res.Embeddings[1][2] != 0.6 {
		t.Errorf("expected 0.6, got %f", res.Embeddings[1][2])
	}
}

func TestDetect_MissingEmbeddingIsNotPadded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count": 1, "faces": [{"face_index": 0, "bbox": [0, 0, 5, 5], "det_score": 0.5}]}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, time.Second).Detect(context.Background(), jpegMagic, 160)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(res.Detections) != 1 || len(res.Embeddings) != 0 {
		t.Errorf("expected 1 detection and 0 embeddings, got %d and %d", len(res.Detections), len(res.Embeddings))
	}
}

func TestDetect_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("models not loaded"))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"faces": "nope"`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			if _, err := NewClient(server.URL, time.Second).Detect(context.Background(), jpegMagic, 160); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDetect_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, 50*time.Millisecond).Detect(context.Background(), jpegMagic, 160)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegMagic, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("hello world"), "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.data); got != tt.want {
				t.Errorf("DetectMIMEType() = %s, want %s", got, tt.want)
			}
		})
	}
}
