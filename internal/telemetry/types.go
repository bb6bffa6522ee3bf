// Package telemetry loads per-video motion samples (gyroscope and
// accelerometer) produced by an external GPMF extraction command and caches
// them next to the video as <base>.gyro.json and <base>.accel.json.
package telemetry

import (
	"encoding/json"
	"math"
	"sort"
)

// Sample is one 3-axis reading at t seconds from the start of the video.
type Sample struct {
	T float64 `json:"t"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// UnmarshalJSON also accepts the "timestamp" key written by older sidecars.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw struct {
		T         *float64 `json:"t"`
		Timestamp *float64 `json:"timestamp"`
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		Z         float64  `json:"z"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.T != nil:
		s.T = *raw.T
	case raw.Timestamp != nil:
		s.T = *raw.Timestamp
	default:
		s.T = math.NaN()
	}
	s.X, s.Y, s.Z = raw.X, raw.Y, raw.Z
	return nil
}

// Series holds both streams for one video. Either may be empty.
type Series struct {
	Gyro  []Sample `json:"gyro"`
	Accel []Sample `json:"accel"`
}

func (s Series) Empty() bool {
	return len(s.Gyro) == 0 && len(s.Accel) == 0
}

// Validate drops samples with a missing or non-finite field and orders the
// rest by time. It returns the cleaned series and how many were dropped.
func Validate(samples []Sample) ([]Sample, int) {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !finite(s.T) || !finite(s.X) || !finite(s.Y) || !finite(s.Z) || s.T < 0 {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].T < out[j].T })
	return out, len(samples) - len(out)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
