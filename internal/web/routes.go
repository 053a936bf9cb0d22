package web

import (
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/facescan/internal/web/handlers"
	"github.com/kozaktomas/facescan/internal/web/middleware"
	"github.com/kozaktomas/facescan/internal/web/static"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config, s.manager.Matcher())
	sessionsHandler := handlers.NewSessionsHandler(s.manager)
	enrollHandler := handlers.NewEnrollHandler(s.manager)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event streams live as long as the session.
		r.Get("/sessions/{id}/events", sessionsHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))

			r.Get("/config", configHandler.Get)

			r.Post("/sessions", sessionsHandler.Create)
			r.Get("/sessions/{id}", sessionsHandler.Get)
			r.Delete("/sessions/{id}", sessionsHandler.Delete)
			r.Post("/sessions/{id}/devices", sessionsHandler.Devices)
			r.Post("/sessions/{id}/frames", sessionsHandler.Frames)

			r.Post("/sessions/{id}/enroll", enrollHandler.Capture)
			r.Post("/sessions/{id}/enroll/confirm", enrollHandler.Confirm)
		})
	})

	// Demo page
	s.router.With(middleware.SecurityHeaders()).Get("/*", s.serveSPA)
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// serveSPA serves the embedded demo page and its assets
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(placeholderPage))
		return
	}

	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	f, err := fs.Open(p)
	if err == nil {
		defer f.Close()
		stat, err := f.Stat()
		if err == nil && !stat.IsDir() {
			contentType, ok := contentTypes[path.Ext(p)]
			if !ok {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// Unknown assets are 404, everything else falls back to the page.
	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}
	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}

const placeholderPage = `<!DOCTYPE html>
<html>
<head><title>facescan</title></head>
<body>
    <h1>facescan</h1>
    <p>The demo page is not embedded in this build.</p>
    <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
</body>
</html>`
