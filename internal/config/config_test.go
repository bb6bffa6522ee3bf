package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/media"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/trailcut-test")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.DBPath() != filepath.Join("/tmp/trailcut-test", DBFilename) {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if cfg.Headless() {
		t.Error("Headless should default to false")
	}
	if cfg.BackendURL() != "" || cfg.ExtractorCommand() != "" {
		t.Errorf("backend/extractor should default to empty: %q %q", cfg.BackendURL(), cfg.ExtractorCommand())
	}
	if cfg.MergeThreshold() != 1.0 {
		t.Errorf("MergeThreshold = %v, want 1", cfg.MergeThreshold())
	}
	if cfg.Scoring() != interest.DefaultOptions() {
		t.Errorf("Scoring = %+v", cfg.Scoring())
	}
	if cfg.MaxSuggestions() != 5 {
		t.Errorf("MaxSuggestions = %d, want 5", cfg.MaxSuggestions())
	}
	if cfg.SuggestMethod() != interest.MethodSpikes || cfg.LevelScoring() != interest.DefaultLevelOptions() {
		t.Errorf("method/levels = %q/%+v", cfg.SuggestMethod(), cfg.LevelScoring())
	}
	if cfg.RenderFinish().Enabled() {
		t.Errorf("RenderFinish should default to plain cuts: %+v", cfg.RenderFinish())
	}
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvBackendURL, "http://nas.local:8000/")
	t.Setenv(EnvBackendToken, "secret")
	t.Setenv(EnvExtractorCommand, "/usr/local/bin/gpmf-extract")
	t.Setenv(EnvExtractTimeout, "90s")
	t.Setenv(EnvMergeThreshold, "0.5")
	t.Setenv(EnvDeltaThreshold, "3")
	t.Setenv(EnvBurstGap, "4")
	t.Setenv(EnvPad, "0")
	t.Setenv(EnvMaxSuggestions, "8")
	t.Setenv(EnvSmoothingWindow, "120")
	t.Setenv(EnvSuggestMethod, "levels")
	t.Setenv(EnvLevelThreshold, "12.5")
	t.Setenv(EnvMergeDistance, "1")
	t.Setenv(EnvRenderFade, "0.25")
	t.Setenv(EnvRenderTitle, "Neve Traverse")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 || !cfg.Headless() {
		t.Errorf("port/headless = %d/%v", cfg.Port(), cfg.Headless())
	}
	if cfg.BackendURL() != "http://nas.local:8000" || cfg.BackendToken() != "secret" {
		t.Errorf("backend = %q %q", cfg.BackendURL(), cfg.BackendToken())
	}
	if cfg.ExtractTimeout() != 90*time.Second {
		t.Errorf("ExtractTimeout = %v", cfg.ExtractTimeout())
	}
	want := interest.Options{DeltaThreshold: 3, BurstGap: 4, Pad: 0}
	if cfg.Scoring() != want {
		t.Errorf("Scoring = %+v, want %+v", cfg.Scoring(), want)
	}
	if cfg.MergeThreshold() != 0.5 || cfg.MaxSuggestions() != 8 || cfg.SmoothingWindow() != 120 {
		t.Errorf("merge/max/window = %v/%d/%d", cfg.MergeThreshold(), cfg.MaxSuggestions(), cfg.SmoothingWindow())
	}
	if cfg.SuggestMethod() != interest.MethodLevels {
		t.Errorf("SuggestMethod = %q", cfg.SuggestMethod())
	}
	wantLevels := interest.LevelOptions{Threshold: 12.5, MinLength: 1, Buffer: 0.5, MergeDistance: 1}
	if cfg.LevelScoring() != wantLevels {
		t.Errorf("LevelScoring = %+v, want %+v", cfg.LevelScoring(), wantLevels)
	}
	if got := cfg.RenderFinish(); got != (media.Finish{Fade: 0.25, Title: "Neve Traverse"}) {
		t.Errorf("RenderFinish = %+v", got)
	}
}

func TestNew_InvalidValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{EnvPort, "abc"},
		{EnvPort, "70000"},
		{EnvHeadless, "maybe"},
		{EnvExtractTimeout, "-1s"},
		{EnvMergeThreshold, "-0.5"},
		{EnvDeltaThreshold, "lots"},
		{EnvMaxSuggestions, "0"},
		{EnvSmoothingWindow, "wide"},
		{EnvSuggestMethod, "peaks"},
		{EnvRunBuffer, "-1"},
		{EnvRenderFade, "-0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", tt.env, tt.value)
			}
		})
	}
}
