package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/live"
	"github.com/kozaktomas/facescan/internal/overlay"
)

// SessionsHandler handles viewer session endpoints
type SessionsHandler struct {
	manager *live.Manager
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(manager *live.Manager) *SessionsHandler {
	return &SessionsHandler{manager: manager}
}

// SessionResponse is a session ID with its current overlay view
type SessionResponse struct {
	ID    string       `json:"id"`
	Stats SessionStats `json:"stats"`
	overlay.View
}

// SessionStats reports frame delivery and attached event streams
type SessionStats struct {
	LastFrameAt   *time.Time `json:"last_frame_at,omitempty"`
	DroppedFrames uint64     `json:"dropped_frames"`
	Listeners     int        `json:"listeners"`
}

func sessionStats(l *live.Live) SessionStats {
	stats := SessionStats{
		DroppedFrames: l.Session.Frames().Drops(),
		Listeners:     l.Session.Events().Listeners(),
	}
	if updated := l.Session.Frames().Updated(); !updated.IsZero() {
		stats.LastFrameAt = &updated
	}
	return stats
}

// DevicesRequest carries the browser's enumerated media devices
type DevicesRequest struct {
	Devices []capture.Device `json:"devices"`
}

// DevicesResponse reports the selected camera
type DevicesResponse struct {
	FacingMode string `json:"facing_mode"`
	Camera     string `json:"camera"`
}

func (h *SessionsHandler) respondView(w http.ResponseWriter, status int, l *live.Live) {
	width, height := h.manager.FrameSize()
	view, err := overlay.FromState(l.Session.Snapshot(), width, height)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, status, SessionResponse{ID: l.Session.ID, Stats: sessionStats(l), View: view})
}

// Create mounts a new session
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	l, err := h.manager.Create()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.respondView(w, http.StatusCreated, l)
}

// Get returns the session snapshot projected into overlay boxes
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}
	h.respondView(w, http.StatusOK, l)
}

// Delete unmounts a session
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}
	if err := h.manager.Delete(l.Session.ID); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Devices selects the facing mode from the device list and starts capture
func (h *SessionsHandler) Devices(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}

	var req DevicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("warning: invalid device list for session %s: %v", sanitizeForLog(l.Session.ID), err)
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	mode, err := h.manager.SelectDevices(l.Session.ID, req.Devices)
	switch {
	case errors.Is(err, live.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, live.ErrModelsNotLoaded):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, DevicesResponse{
		FacingMode: mode,
		Camera:     capture.CameraLabel(mode),
	})
}

// Frames stores the latest camera frame for the next capture pass
func (h *SessionsHandler) Frames(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}

	data, err := readImageBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if l.Session.Closed() {
		respondError(w, http.StatusConflict, "session is closed")
		return
	}

	l.Session.Frames().Push(data)
	w.WriteHeader(http.StatusAccepted)
}

// Events streams overlay updates over SSE
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSessionEvents(w, r, h.manager)
}
