// Package config provides configuration management for Trailcut.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/telemetry"
)

const (
	// Default values
	DefaultPort     = 8000
	DefaultLogLevel = "info"
	DefaultDataDir  = ".trailcut"

	// Environment variable names
	EnvPort     = "TRAILCUT_PORT"
	EnvLogLevel = "TRAILCUT_LOG_LEVEL"
	EnvDataDir  = "TRAILCUT_DATA_DIR"
	EnvHeadless = "TRAILCUT_HEADLESS"

	// Remote backend; empty URL keeps segments in the local catalog
	EnvBackendURL   = "TRAILCUT_BACKEND_URL"
	EnvBackendToken = "TRAILCUT_BACKEND_TOKEN"

	// External tools
	EnvExtractorCommand = "TRAILCUT_EXTRACTOR"
	EnvExtractTimeout   = "TRAILCUT_EXTRACT_TIMEOUT"
	EnvFFmpegPath       = "TRAILCUT_FFMPEG"
	EnvFFprobePath      = "TRAILCUT_FFPROBE"

	// Final cut polish; a zero fade and empty title keep plain cuts
	EnvRenderFade     = "TRAILCUT_RENDER_FADE"
	EnvRenderTitle    = "TRAILCUT_RENDER_TITLE"
	EnvRenderSubtitle = "TRAILCUT_RENDER_SUBTITLE"

	// Segment handling and scoring
	EnvMergeThreshold  = "TRAILCUT_MERGE_THRESHOLD"
	EnvDeltaThreshold  = "TRAILCUT_DELTA_THRESHOLD"
	EnvBurstGap        = "TRAILCUT_BURST_GAP"
	EnvPad             = "TRAILCUT_PAD"
	EnvMaxSuggestions  = "TRAILCUT_MAX_SUGGESTIONS"
	EnvSmoothingWindow = "TRAILCUT_SMOOTHING_WINDOW"
	EnvSuggestMethod   = "TRAILCUT_SUGGEST_METHOD"
	EnvLevelThreshold  = "TRAILCUT_LEVEL_THRESHOLD"
	EnvMinRunLength    = "TRAILCUT_MIN_RUN_LENGTH"
	EnvRunBuffer       = "TRAILCUT_RUN_BUFFER"
	EnvMergeDistance   = "TRAILCUT_MERGE_DISTANCE"

	// Database filename
	DBFilename = "trailcut.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	BackendURL() string
	BackendToken() string
	ExtractorCommand() string
	ExtractTimeout() time.Duration
	FFmpegPath() string
	FFprobePath() string
	RenderFinish() media.Finish
	MergeThreshold() float64
	Scoring() interest.Options
	MaxSuggestions() int
	SmoothingWindow() int
	SuggestMethod() interest.Method
	LevelScoring() interest.LevelOptions
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	backendURL   string
	backendToken string

	extractorCommand string
	extractTimeout   time.Duration
	ffmpegPath       string
	ffprobePath      string
	renderFinish     media.Finish

	mergeThreshold  float64
	scoring         interest.Options
	maxSuggestions  int
	smoothingWindow int
	suggestMethod   interest.Method
	levelScoring    interest.LevelOptions
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		extractTimeout:  telemetry.DefaultExtractTimeout,
		mergeThreshold:  segments.DefaultMergeThreshold,
		scoring:         interest.DefaultOptions(),
		maxSuggestions:  interest.DefaultMaxSegments,
		smoothingWindow: interest.DefaultSmoothingWindow,
		suggestMethod:   interest.MethodSpikes,
		levelScoring:    interest.DefaultLevelOptions(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.backendURL = strings.TrimRight(os.Getenv(EnvBackendURL), "/")
	cfg.backendToken = os.Getenv(EnvBackendToken)
	cfg.extractorCommand = os.Getenv(EnvExtractorCommand)
	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)
	cfg.renderFinish.Title = os.Getenv(EnvRenderTitle)
	cfg.renderFinish.Subtitle = os.Getenv(EnvRenderSubtitle)

	if t := os.Getenv(EnvExtractTimeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExtractTimeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvExtractTimeout)
		}
		cfg.extractTimeout = d
	}

	if m := os.Getenv(EnvSuggestMethod); m != "" {
		method, err := interest.ParseMethod(m)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSuggestMethod, err)
		}
		cfg.suggestMethod = method
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{EnvMergeThreshold, &cfg.mergeThreshold},
		{EnvDeltaThreshold, &cfg.scoring.DeltaThreshold},
		{EnvBurstGap, &cfg.scoring.BurstGap},
		{EnvPad, &cfg.scoring.Pad},
		{EnvLevelThreshold, &cfg.levelScoring.Threshold},
		{EnvMinRunLength, &cfg.levelScoring.MinLength},
		{EnvRunBuffer, &cfg.levelScoring.Buffer},
		{EnvMergeDistance, &cfg.levelScoring.MergeDistance},
		{EnvRenderFade, &cfg.renderFinish.Fade},
	}
	for _, f := range floats {
		if err := parseNonNegativeFloat(f.env, f.dst); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{EnvMaxSuggestions, &cfg.maxSuggestions},
		{EnvSmoothingWindow, &cfg.smoothingWindow},
	}
	for _, i := range ints {
		if err := parsePositiveInt(i.env, i.dst); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func parseNonNegativeFloat(env string, dst *float64) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	if f < 0 {
		return fmt.Errorf("invalid %s: must not be negative", env)
	}
	*dst = f
	return nil
}

func parsePositiveInt(env string, dst *int) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	if n < 1 {
		return fmt.Errorf("invalid %s: must be at least 1", env)
	}
	*dst = n
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) BackendURL() string {
	return c.backendURL
}

func (c *EnvConfig) BackendToken() string {
	return c.backendToken
}

// ExtractorCommand is the telemetry extractor binary; empty disables
// extraction.
func (c *EnvConfig) ExtractorCommand() string {
	return c.extractorCommand
}

func (c *EnvConfig) ExtractTimeout() time.Duration {
	return c.extractTimeout
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) RenderFinish() media.Finish {
	return c.renderFinish
}

func (c *EnvConfig) MergeThreshold() float64 {
	return c.mergeThreshold
}

func (c *EnvConfig) Scoring() interest.Options {
	return c.scoring
}

func (c *EnvConfig) MaxSuggestions() int {
	return c.maxSuggestions
}

func (c *EnvConfig) SmoothingWindow() int {
	return c.smoothingWindow
}

func (c *EnvConfig) SuggestMethod() interest.Method {
	return c.suggestMethod
}

func (c *EnvConfig) LevelScoring() interest.LevelOptions {
	return c.levelScoring
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
