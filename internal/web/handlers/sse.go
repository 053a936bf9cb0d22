package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/facescan/internal/live"
	"github.com/kozaktomas/facescan/internal/overlay"
	"github.com/kozaktomas/facescan/internal/session"
)

// setupSSEConnection finds the session and sets up SSE headers.
// On failure it writes an error response and returns false.
func setupSSEConnection(w http.ResponseWriter, r *http.Request, manager *live.Manager) (*live.Live, http.Flusher, bool) {
	l := lookupSession(w, r, manager)
	if l == nil {
		return nil, nil, false
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return l, flusher, true
}

// sendSSEEvent writes one named event with a JSON payload.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// streamSessionEvents streams projected overlay views until the session
// closes or the client disconnects. The current view is sent first.
func streamSessionEvents(w http.ResponseWriter, r *http.Request, manager *live.Manager) {
	l, flusher, ok := setupSSEConnection(w, r, manager)
	if !ok {
		return
	}
	width, height := manager.FrameSize()

	eventCh := l.Session.Events().AddListener()
	defer l.Session.Events().RemoveListener(eventCh)

	send := func(eventType string, st session.State) {
		view, err := overlay.FromState(st, width, height)
		if err != nil {
			sendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()})
			return
		}
		sendSSEEvent(w, flusher, eventType, view)
	}

	send(session.EventState, l.Session.Snapshot())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			send(event.Type, event.State)
			if event.Type == session.EventClosed {
				return
			}
		}
	}
}
