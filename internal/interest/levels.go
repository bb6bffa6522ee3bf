package interest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/trailcut/trailcut/internal/telemetry"
)

const (
	DefaultSmoothingWindow = 300
	DefaultResolution      = 1.0
)

// InterestPoint is one sample of the interest signal drawn under the video.
type InterestPoint struct {
	Timestamp     float64 `json:"timestamp"`
	InterestLevel float64 `json:"interest_level"`
}

// Levels derives the interest signal: x+y+z per distinct timestamp (accel
// wins over gyro for a shared timestamp), smoothed with a centred moving
// average of window points and averaged into resolution-second buckets.
func Levels(accel, gyro []telemetry.Sample, window int, resolution float64) []InterestPoint {
	raw := make(map[float64]float64, len(accel)+len(gyro))
	for _, series := range [][]telemetry.Sample{accel, gyro} {
		for _, s := range series {
			if _, seen := raw[s.T]; !seen {
				raw[s.T] = s.X + s.Y + s.Z
			}
		}
	}
	if len(raw) == 0 {
		return []InterestPoint{}
	}

	times := make([]float64, 0, len(raw))
	for t := range raw {
		times = append(times, t)
	}
	sort.Float64s(times)

	values := make([]float64, len(times))
	for i, t := range times {
		values[i] = raw[t]
	}
	smoothed := movingAverage(values, window)

	if resolution <= 0 {
		out := make([]InterestPoint, len(times))
		for i := range times {
			out[i] = InterestPoint{Timestamp: times[i], InterestLevel: smoothed[i]}
		}
		return out
	}
	return bucket(times, smoothed, resolution)
}

// movingAverage is a same-length convolution with a box kernel of width
// window. The kernel is centred (leaning left for even widths) and positions
// past either end count as zero, so edges taper toward zero. A series shorter
// than the window is centred on the series instead of the kernel.
func movingAverage(values []float64, window int) []float64 {
	n := len(values)
	if window <= 1 || n == 0 {
		return append([]float64(nil), values...)
	}

	prefix := make([]float64, n+1)
	for i, v := range values {
		prefix[i+1] = prefix[i] + v
	}

	offset := (window - 1) / 2
	if n < window {
		offset = (n - 1) / 2
	}
	out := make([]float64, n)
	for i := range values {
		hi := i + offset
		lo := hi - window + 1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(window)
	}
	return out
}

func bucket(times, values []float64, resolution float64) []InterestPoint {
	var out []InterestPoint
	var current []float64
	key := math.Floor(times[0]/resolution) * resolution

	for i, t := range times {
		k := math.Floor(t/resolution) * resolution
		if k != key {
			out = append(out, InterestPoint{Timestamp: key, InterestLevel: stat.Mean(current, nil)})
			current = current[:0]
			key = k
		}
		current = append(current, values[i])
	}
	return append(out, InterestPoint{Timestamp: key, InterestLevel: stat.Mean(current, nil)})
}
