package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	GyroSuffix  = ".gyro.json"
	AccelSuffix = ".accel.json"
)

// SidecarPaths returns the gyro and accel cache paths next to videoPath.
func SidecarPaths(videoPath string) (gyro, accel string) {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	return base + GyroSuffix, base + AccelSuffix
}

// Cached reports whether both sidecars exist and are non-empty.
func Cached(videoPath string) bool {
	gyro, accel := SidecarPaths(videoPath)
	return nonEmpty(gyro) && nonEmpty(accel)
}

// ReadCache loads both sidecars. A missing or empty sidecar is an error so the
// caller can fall back to extraction.
func ReadCache(videoPath string) (Series, error) {
	gyroPath, accelPath := SidecarPaths(videoPath)

	gyro, err := readSamples(gyroPath)
	if err != nil {
		return Series{}, err
	}
	accel, err := readSamples(accelPath)
	if err != nil {
		return Series{}, err
	}
	return Series{Gyro: gyro, Accel: accel}, nil
}

// WriteCache writes both sidecars. An empty series is written as "[]" and
// counts as extracted, so a file without telemetry is not re-read.
func WriteCache(videoPath string, series Series) error {
	gyroPath, accelPath := SidecarPaths(videoPath)
	if err := writeSamples(gyroPath, series.Gyro); err != nil {
		return err
	}
	return writeSamples(accelPath, series.Accel)
}

func readSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return samples, nil
}

func writeSamples(path string, samples []Sample) error {
	if samples == nil {
		samples = []Sample{}
	}
	data, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
