package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runtime settings, built from embedded defaults and the environment.
type Config struct {
	Capture   CaptureConfig
	Match     MatchConfig
	Inference InferenceConfig
	Profile   ProfileConfig
	Database  DatabaseConfig
	Web       WebConfig
}

// CaptureConfig controls the periodic capture-analyze-match cycle.
type CaptureConfig struct {
	Interval      time.Duration
	InputSize     int    // target input size passed to the detector
	FrameWidth    int    // frames are scaled to this size before analysis
	FrameHeight   int
	OverlapPolicy string // "latest" (generation check only) or "skip" (also skip ticks while busy)
}

// MatchConfig controls identity matching.
type MatchConfig struct {
	Threshold         float64 // distance < threshold matches, otherwise "unknown"
	Metric            string  // "euclidean" or "cosine"
	Strategy          string  // "mean" (group mean) or "nearest" (single reference)
	HNSWMinReferences int     // build an HNSW index for "nearest" at or above this many references; 0 disables it
}

type InferenceConfig struct {
	URL     string        // defaults to http://localhost:8000
	Timeout time.Duration // 0 leaves calls bounded only by the caller's context
}

type ProfileConfig struct {
	Path                  string // JSON or YAML profile file; takes precedence over the databases
	PhotoPrismDatabaseURL string // MariaDB DSN of a PhotoPrism instance whose named face markers form the profile
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins; localhost is always allowed
}

// defaults mirrors the layout of defaults.yaml.
type defaults struct {
	Capture struct {
		IntervalMs    int    `yaml:"interval_ms"`
		InputSize     int    `yaml:"input_size"`
		FrameWidth    int    `yaml:"frame_width"`
		FrameHeight   int    `yaml:"frame_height"`
		OverlapPolicy string `yaml:"overlap_policy"`
	} `yaml:"capture"`
	Match struct {
		Threshold         float64 `yaml:"threshold"`
		Metric            string  `yaml:"metric"`
		Strategy          string  `yaml:"strategy"`
		HNSWMinReferences int     `yaml:"hnsw_min_references"`
	} `yaml:"match"`
	Inference struct {
		URL       string `yaml:"url"`
		TimeoutMs int    `yaml:"timeout_ms"`
	} `yaml:"inference"`
	Web struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"web"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegInt is envInt for settings where 0 means "off".
func envNonNegInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envList splits a comma-separated env value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envString returns the lowercased env value or the default.
func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return strings.ToLower(s)
	}
	return defaultVal
}

// Load builds the configuration from defaults.yaml overridden by environment variables.
func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	inferenceURL := os.Getenv("INFERENCE_URL")
	if inferenceURL == "" {
		inferenceURL = d.Inference.URL
	}
	webHost := os.Getenv("WEB_HOST")
	if webHost == "" {
		webHost = d.Web.Host
	}

	return &Config{
		Capture: CaptureConfig{
			Interval:      time.Duration(envInt("CAPTURE_INTERVAL_MS", d.Capture.IntervalMs)) * time.Millisecond,
			InputSize:     envInt("CAPTURE_INPUT_SIZE", d.Capture.InputSize),
			FrameWidth:    envInt("CAPTURE_FRAME_WIDTH", d.Capture.FrameWidth),
			FrameHeight:   envInt("CAPTURE_FRAME_HEIGHT", d.Capture.FrameHeight),
			OverlapPolicy: envString("CAPTURE_OVERLAP_POLICY", d.Capture.OverlapPolicy),
		},
		Match: MatchConfig{
			Threshold:         envFloat("MATCH_THRESHOLD", d.Match.Threshold),
			Metric:            envString("MATCH_METRIC", d.Match.Metric),
			Strategy:          envString("MATCH_STRATEGY", d.Match.Strategy),
			HNSWMinReferences: envNonNegInt("MATCH_HNSW_MIN_REFERENCES", d.Match.HNSWMinReferences),
		},
		Inference: InferenceConfig{
			URL:     inferenceURL,
			Timeout: time.Duration(envNonNegInt("INFERENCE_TIMEOUT_MS", d.Inference.TimeoutMs)) * time.Millisecond,
		},
		Profile: ProfileConfig{
			Path:                  os.Getenv("PROFILE_PATH"),
			PhotoPrismDatabaseURL: os.Getenv("PHOTOPRISM_DATABASE_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Host:           webHost,
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
