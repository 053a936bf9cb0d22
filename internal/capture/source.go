// Package capture provides the frame sources polled by the scheduler and
// camera facing-mode selection.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrNotReady is returned by a source that has no frame yet.
var ErrNotReady = errors.New("frame source not ready")

// FrameSource yields the current frame as an encoded image.
type FrameSource interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// LatestFrame holds the most recent frame pushed by a client. A new frame
// replaces the previous one; stale frames are never queued.
type LatestFrame struct {
	mu      sync.RWMutex
	data    []byte
	updated time.Time
	drops   uint64 // frames replaced before anyone read them
	read    bool
}

// NewLatestFrame creates an empty frame mailbox.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{}
}

// Push stores a copy of data as the current frame.
func (f *LatestFrame) Push(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data != nil && !f.read {
		f.drops++
	}
	f.data = frame
	f.updated = time.Now()
	f.read = false
}

// Snapshot returns the current frame or ErrNotReady before the first push.
// The returned slice must not be modified.
func (f *LatestFrame) Snapshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data) == 0 {
		return nil, ErrNotReady
	}
	f.read = true
	return f.data, nil
}

// Updated returns when the last frame was pushed.
func (f *LatestFrame) Updated() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

// Drops returns how many frames were overwritten unread.
func (f *LatestFrame) Drops() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.drops
}

// StaticFrame always returns the same image.
type StaticFrame []byte

// Snapshot returns the image, or ErrNotReady when it is empty.
func (s StaticFrame) Snapshot(ctx context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrNotReady
	}
	return s, nil
}

// HTTPSnapshot fetches a JPEG snapshot from a network camera on every call.
type HTTPSnapshot struct {
	url    string
	client *http.Client
}

// NewHTTPSnapshot creates a source polling url.
func NewHTTPSnapshot(url string, timeout time.Duration) *HTTPSnapshot {
	return &HTTPSnapshot{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Snapshot downloads the current frame.
func (h *HTTPSnapshot) Snapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot error (status %d)", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, ErrNotReady
	}
	return body, nil
}
