// Package media wraps the ffprobe and ffmpeg command-line tools: duration
// probing, stream-copy cuts of single segments, concatenation of cuts and
// the optional faded, title-carded final cut.
package media

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
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// Tool is the media operation surface used by the catalog and renderer.
type Tool interface {
	Inspect(ctx context.Context, path string) (*VideoInfo, error)
	// Cut copies [start, start+duration) of the first video stream of input
	// into output without re-encoding.
	Cut(ctx context.Context, input, output string, start, duration float64) error
	// Concat joins inputs, in order, into output without re-encoding.
	Concat(ctx context.Context, inputs []string, output string) error
}

type VideoInfo struct {
	Duration  float64
	Width     int
	Height    int
	Codec     string
	FrameRate float64
}

// Config holds tool paths and limits.
type Config struct {
	FFmpegPath   string        // empty = "ffmpeg" on PATH
	FFprobePath  string        // empty = "ffprobe" on PATH
	InspectTimeout time.Duration // per ffprobe call
	CutTimeout   time.Duration // per ffmpeg call
	Logger       *slog.Logger
}

func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		InspectTimeout: 30 * time.Second,
		CutTimeout:   10 * time.Minute,
		Logger:       logger,
	}
}

// RunResult holds the outcome of one tool invocation.
type RunResult struct {
	ExitCode   int
	Stdout     []byte
	StderrTail string
	Duration   time.Duration
}

func (r RunResult) IsSuccess() bool {
	return r.ExitCode == 0
}

// FFmpeg runs the real binaries.
type FFmpeg struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg resolves both binaries on PATH.
func NewFFmpeg(cfg Config) (*FFmpeg, error) {
	ffmpeg, err := resolve(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolve(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}
	if cfg.InspectTimeout <= 0 {
		cfg.InspectTimeout = 30 * time.Second
	}
	if cfg.CutTimeout <= 0 {
		cfg.CutTimeout = 10 * time.Minute
	}

	cfg.Logger.Info("media tools resolved", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	return &FFmpeg{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

func (f *FFmpeg) Inspect(ctx context.Context, path string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.InspectTimeout)
	defer cancel()

	result := f.exec(ctx, f.ffprobe, true,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return parseVideoInfo(result.Stdout)
}

func (f *FFmpeg) Cut(ctx context.Context, input, output string, start, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("cut duration must be positive, got %.3f", duration)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.CutTimeout)
	defer cancel()

	result := f.exec(ctx, f.ffmpeg, false, cutArgs(input, output, start, duration)...)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg cut exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

func (f *FFmpeg) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	list, err := os.CreateTemp(filepath.Dir(output), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())

	if _, err := list.WriteString(concatList(inputs)); err != nil {
		list.Close()
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.CutTimeout)
	defer cancel()

	result := f.exec(ctx, f.ffmpeg, false,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		output,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg concat exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

func (f *FFmpeg) Fade(ctx context.Context, input, output string, fade float64) error {
	meta, err := f.Inspect(ctx, input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.CutTimeout)
	defer cancel()

	result := f.exec(ctx, f.ffmpeg, false, fadeArgs(input, output, fadeFilter(meta.Duration, fade))...)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg fade exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

func (f *FFmpeg) TitleCard(ctx context.Context, output string, card TitleCard) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.CutTimeout)
	defer cancel()

	result := f.exec(ctx, f.ffmpeg, false, titleCardArgs(output, withCardDefaults(card))...)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg title card exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

func (f *FFmpeg) exec(ctx context.Context, bin string, captureStdout bool, args ...string) RunResult {
	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderrBuf, stdoutBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	if captureStdout {
		cmd.Stdout = &stdoutBuf
	} else {
		cmd.Stdout = io.Discard
	}

	f.cfg.Logger.Debug("executing media command", "bin", filepath.Base(bin), "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if exitCode != 0 {
		f.cfg.Logger.Warn("media command failed",
			"bin", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		Stdout:     stdoutBuf.Bytes(),
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}
}

func cutArgs(input, output string, start, duration float64) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(start),
		"-i", input,
		"-t", formatSeconds(duration),
		"-map", "0:0",
		"-c", "copy",
		output,
	}
}

// concatList renders the concat demuxer's list file. Single quotes inside a
// path are closed, escaped and reopened.
func concatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Duration     string `json:"duration"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

func parseVideoInfo(data []byte) (*VideoInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	result := &VideoInfo{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		result.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		result.Codec = s.CodecName
		result.Width = s.Width
		result.Height = s.Height
		result.FrameRate = parseRate(s.AvgFrameRate)
		if result.Duration == 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
				result.Duration = d
			}
		}
		break
	}
	if result.Duration <= 0 {
		return nil, fmt.Errorf("ffprobe reported no duration")
	}
	return result, nil
}

// parseRate turns "30000/1001" into 29.97.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func resolve(preferred, fallback string) (string, error) {
	name := preferred
	if name == "" {
		name = fallback
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
