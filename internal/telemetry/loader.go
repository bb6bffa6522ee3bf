package telemetry

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Loader returns a video's telemetry, reading the sidecar cache when present
// and running the extractor otherwise.
type Loader struct {
	extractor Extractor
	logger    *slog.Logger
}

func NewLoader(extractor Extractor, logger *slog.Logger) *Loader {
	return &Loader{extractor: extractor, logger: logger}
}

// Load never fails: a broken cache falls through to extraction and a failed
// extraction yields empty series. Only successful extractions are cached so
// a transient failure is retried on the next load.
func (l *Loader) Load(ctx context.Context, videoPath string) Series {
	name := filepath.Base(videoPath)

	if Cached(videoPath) {
		series, err := ReadCache(videoPath)
		if err == nil {
			return l.clean(name, series)
		}
		l.logger.Warn("telemetry cache unreadable, re-extracting", "video", name, "error", err)
	}

	series, err := l.extractor.Extract(ctx, videoPath)
	if err != nil {
		l.logger.Warn("telemetry unavailable", "video", name, "error", err)
		return Series{}
	}

	series = l.clean(name, series)
	if err := WriteCache(videoPath, series); err != nil {
		l.logger.Warn("failed to write telemetry cache", "video", name, "error", err)
	}
	return series
}

func (l *Loader) clean(name string, series Series) Series {
	gyro, droppedGyro := Validate(series.Gyro)
	accel, droppedAccel := Validate(series.Accel)
	if droppedGyro > 0 || droppedAccel > 0 {
		l.logger.Warn("dropped malformed telemetry samples",
			"video", name,
			"gyro_dropped", droppedGyro,
			"accel_dropped", droppedAccel,
		)
	}
	return Series{Gyro: gyro, Accel: accel}
}
