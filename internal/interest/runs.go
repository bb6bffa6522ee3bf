package interest

import (
	"fmt"
	"math"
	"sort"

	"github.com/trailcut/trailcut/internal/segments"
)

// Method names a suggestion strategy.
type Method string

const (
	// MethodSpikes scores bursts of abrupt acceleration with Suggest.
	MethodSpikes Method = "spikes"
	// MethodLevels extracts runs of the smoothed interest curve with
	// LevelSegments.
	MethodLevels Method = "levels"
)

// ParseMethod accepts a method name. Empty means MethodSpikes.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodSpikes:
		return MethodSpikes, nil
	case MethodLevels:
		return MethodLevels, nil
	}
	return "", fmt.Errorf("unknown suggestion method %q", s)
}

const (
	DefaultLevelThreshold = 10.0
	DefaultMinRunLength   = 1.0
	DefaultRunBuffer      = 0.5
	DefaultMergeDistance  = 3.0
)

// LevelOptions tunes run extraction over the smoothed interest signal.
type LevelOptions struct {
	// Threshold is the interest level at or above which a point is part of a run.
	Threshold float64
	// MinLength drops runs shorter than this many seconds, before buffering.
	MinLength float64
	// Buffer widens each run on both sides, in seconds.
	Buffer float64
	// MergeDistance joins buffered runs whose gap is at most this many seconds.
	MergeDistance float64
}

func DefaultLevelOptions() LevelOptions {
	return LevelOptions{
		Threshold:     DefaultLevelThreshold,
		MinLength:     DefaultMinRunLength,
		Buffer:        DefaultRunBuffer,
		MergeDistance: DefaultMergeDistance,
	}
}

// LevelSegments finds runs of points at or above the threshold. A run ends at
// the first point that falls below it, or at the last point for a run still
// open at the end. Runs are buffered, merged when close and tagged auto. The
// start is clamped at zero; callers clamp the end to the video length.
func LevelSegments(levels []InterestPoint, opts LevelOptions) []segments.Segment {
	if len(levels) == 0 {
		return []segments.Segment{}
	}

	points := append([]InterestPoint(nil), levels...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	type run struct{ start, end float64 }
	var runs []run
	keep := func(start, end float64) {
		if end-start >= opts.MinLength {
			runs = append(runs, run{start: start - opts.Buffer, end: end + opts.Buffer})
		}
	}

	open := false
	var start float64
	for _, p := range points {
		if p.InterestLevel >= opts.Threshold {
			if !open {
				open, start = true, p.Timestamp
			}
			continue
		}
		if open {
			keep(start, p.Timestamp)
			open = false
		}
	}
	if open {
		keep(start, points[len(points)-1].Timestamp)
	}
	if len(runs) == 0 {
		return []segments.Segment{}
	}

	merged := []run{runs[0]}
	for _, r := range runs[1:] {
		last := &merged[len(merged)-1]
		if r.start-last.end <= opts.MergeDistance {
			last.end = math.Max(last.end, r.end)
			continue
		}
		merged = append(merged, r)
	}

	out := make([]segments.Segment, 0, len(merged))
	for _, r := range merged {
		out = append(out, segments.New(math.Max(0, r.start), r.end, segments.SourceAuto))
	}
	return out
}
