package handlers

import (
	"net/http"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/matcher"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	matcher *matcher.Matcher
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, m *matcher.Matcher) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		matcher: m,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Capture CaptureInfo `json:"capture"`
	Match   MatchInfo   `json:"match"`
	Profile ProfileInfo `json:"profile"`
}

// CaptureInfo mirrors the capture cycle settings
type CaptureInfo struct {
	IntervalMs    int64  `json:"interval_ms"`
	InputSize     int    `json:"input_size"`
	FrameWidth    int    `json:"frame_width"`
	FrameHeight   int    `json:"frame_height"`
	OverlapPolicy string `json:"overlap_policy"`
}

// MatchInfo mirrors the matcher settings
type MatchInfo struct {
	Threshold float64 `json:"threshold"`
	Metric    string  `json:"metric"`
	Strategy  string  `json:"strategy"`
	Indexed   bool    `json:"indexed"`
}

// ProfileInfo describes the loaded reference profile
type ProfileInfo struct {
	Source     string   `json:"source"`
	Labels     []string `json:"labels"`
	References int      `json:"references"`
	Dim        int      `json:"dim"`
	Database   bool     `json:"database"`
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.config

	response := ConfigResponse{
		Capture: CaptureInfo{
			IntervalMs:    cfg.Capture.Interval.Milliseconds(),
			InputSize:     cfg.Capture.InputSize,
			FrameWidth:    cfg.Capture.FrameWidth,
			FrameHeight:   cfg.Capture.FrameHeight,
			OverlapPolicy: cfg.Capture.OverlapPolicy,
		},
		Match: MatchInfo{
			Threshold: cfg.Match.Threshold,
			Metric:    cfg.Match.Metric,
			Strategy:  cfg.Match.Strategy,
		},
		Profile: ProfileInfo{
			Source:   "file",
			Labels:   []string{},
			Database: database.IsInitialized(),
		},
	}
	switch {
	case cfg.Profile.Path != "":
	case cfg.Profile.PhotoPrismDatabaseURL != "":
		response.Profile.Source = "photoprism"
	default:
		response.Profile.Source = "database"
	}

	if h.matcher != nil {
		opts := h.matcher.Options()
		response.Match.Threshold = opts.Threshold
		response.Match.Metric = opts.Metric
		response.Match.Strategy = opts.Strategy
		response.Match.Indexed = h.matcher.Indexed()
		if labels := h.matcher.Labels(); labels != nil {
			response.Profile.Labels = labels
		}
		response.Profile.References = h.matcher.References()
		response.Profile.Dim = h.matcher.Dim()
	}

	respondJSON(w, http.StatusOK, response)
}
