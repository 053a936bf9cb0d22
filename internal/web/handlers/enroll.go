package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/enroll"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/live"
	"github.com/kozaktomas/facescan/internal/session"
)

// EnrollHandler handles single-shot enrollment endpoints
type EnrollHandler struct {
	manager *live.Manager
}

// NewEnrollHandler creates a new enroll handler
func NewEnrollHandler(manager *live.Manager) *EnrollHandler {
	return &EnrollHandler{manager: manager}
}

// CaptureResponse is the staged match for a single-face capture
type CaptureResponse struct {
	Match     face.MatchResult `json:"match"`
	ShowInput bool             `json:"show_input"`
}

// ConfirmRequest names the staged capture
type ConfirmRequest struct {
	Name string `json:"name"`
}

// ConfirmResponse reports the normalized label
type ConfirmResponse struct {
	Label     string `json:"label"`
	Persisted bool   `json:"persisted"`
}

// Capture analyzes one photo and stages it when exactly one face is found
func (h *EnrollHandler) Capture(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}
	if !h.manager.Ready() {
		respondError(w, http.StatusServiceUnavailable, live.ErrModelsNotLoaded.Error())
		return
	}

	data, err := readImageBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	match, err := h.manager.Enroller().Capture(r.Context(), l.Session, data)
	switch {
	case errors.Is(err, enroll.ErrNotSingleFace):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, analyzer.ErrUndecodable):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, CaptureResponse{Match: match, ShowInput: true})
}

// Confirm accepts a name for the staged capture. Nothing is persisted.
func (h *EnrollHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	l := lookupSession(w, r, h.manager)
	if l == nil {
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	label, err := h.manager.Enroller().Confirm(l.Session, req.Name)
	switch {
	case errors.Is(err, enroll.ErrEmptyName):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, session.ErrNothingPending), errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponse{Label: label})
}
