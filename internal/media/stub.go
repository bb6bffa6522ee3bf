package media

import (
	"context"
	"errors"
	"log/slog"
)

var ErrUnavailable = errors.New("ffmpeg is not installed")

// StubTool stands in when ffmpeg or ffprobe is missing. Inspect reports an
// unknown duration and renders fail with ErrUnavailable.
type StubTool struct {
	logger *slog.Logger
}

func NewStubTool(logger *slog.Logger) *StubTool {
	return &StubTool{logger: logger}
}

func (s *StubTool) Inspect(ctx context.Context, path string) (*VideoInfo, error) {
	s.logger.Debug("media stub: inspect requested", "path", path)
	return &VideoInfo{}, nil
}

func (s *StubTool) Cut(ctx context.Context, input, output string, start, duration float64) error {
	return ErrUnavailable
}

func (s *StubTool) Concat(ctx context.Context, inputs []string, output string) error {
	return ErrUnavailable
}

func (s *StubTool) Fade(ctx context.Context, input, output string, fade float64) error {
	return ErrUnavailable
}

func (s *StubTool) TitleCard(ctx context.Context, output string, card TitleCard) error {
	return ErrUnavailable
}
