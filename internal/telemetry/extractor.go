package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024

	DefaultExtractTimeout = 10 * time.Minute
)

// Extractor produces raw telemetry for a video container.
type Extractor interface {
	Extract(ctx context.Context, videoPath string) (Series, error)
}

// ExtractorConfig configures the subprocess extractor.
type ExtractorConfig struct {
	// Command is the extraction binary, invoked as
	// `<command> --input <video> --out <json>`. The JSON output is an object
	// with "gyro" and "accel" sample arrays.
	Command string
	Timeout time.Duration
	WorkDir string
	Logger  *slog.Logger
}

// CommandExtractor runs an external GPMF extraction command.
type CommandExtractor struct {
	cfg  ExtractorConfig
	path string
}

// NewCommandExtractor resolves the extraction binary on PATH.
func NewCommandExtractor(cfg ExtractorConfig) (*CommandExtractor, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("no extractor command configured")
	}
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("extractor %q not found: %w", cfg.Command, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExtractTimeout
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create extractor work dir: %w", err)
	}
	return &CommandExtractor{cfg: cfg, path: path}, nil
}

func (e *CommandExtractor) Extract(ctx context.Context, videoPath string) (Series, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, err := os.CreateTemp(e.cfg.WorkDir, "telemetry-*.json")
	if err != nil {
		return Series{}, fmt.Errorf("create output file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.path, "--input", videoPath, "--out", outPath)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &tailWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		e.cfg.Logger.Warn("telemetry extraction failed",
			"video", filepath.Base(videoPath),
			"exit_code", exitCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
		return Series{}, fmt.Errorf("extractor exited %d: %w", exitCode, err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return Series{}, fmt.Errorf("cannot read extractor output: %w", err)
	}

	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		return Series{}, fmt.Errorf("cannot parse extractor JSON: %w", err)
	}

	e.cfg.Logger.Info("telemetry extracted",
		"video", filepath.Base(videoPath),
		"gyro", len(series.Gyro),
		"accel", len(series.Accel),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return series, nil
}

// NoopExtractor is used when no extraction command is available. Every video
// then loads with empty series.
type NoopExtractor struct {
	logger *slog.Logger
}

func NewNoopExtractor(logger *slog.Logger) *NoopExtractor {
	return &NoopExtractor{logger: logger}
}

func (n *NoopExtractor) Extract(ctx context.Context, videoPath string) (Series, error) {
	n.logger.Debug("telemetry extractor not configured", "video", filepath.Base(videoPath))
	return Series{}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// tailWriter keeps only the last limit bytes written.
type tailWriter struct {
	w     *bytes.Buffer
	limit int
}

func (tw *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	tw.w.Write(p)
	if tw.w.Len() > tw.limit {
		b := tw.w.Bytes()
		tail := strings.Clone(string(b[len(b)-tw.limit:]))
		tw.w.Reset()
		tw.w.WriteString(tail)
	}
	return n, nil
}
