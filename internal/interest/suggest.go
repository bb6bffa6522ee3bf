// Package interest turns accelerometer telemetry into suggested review
// segments and into the smoothed interest signal drawn under the video.
package interest

import (
	"math"
	"sort"

	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/telemetry"
)

const (
	DefaultDeltaThreshold = 5.0
	DefaultBurstGap       = 2.0
	DefaultPad            = 1.0
	DefaultMaxSegments    = 5
)

// Options tunes spike detection and burst grouping. The defaults are not
// calibrated for any particular sensor range.
type Options struct {
	// DeltaThreshold is the L1 first-difference above which a sample counts
	// as a spike.
	DeltaThreshold float64
	// BurstGap is the largest gap in seconds between spikes of one burst.
	BurstGap float64
	// Pad widens each burst on both sides, in seconds.
	Pad float64
}

func DefaultOptions() Options {
	return Options{
		DeltaThreshold: DefaultDeltaThreshold,
		BurstGap:       DefaultBurstGap,
		Pad:            DefaultPad,
	}
}

type burst struct {
	start, end float64
	score      int
}

// Suggest proposes at most maxSegments non-overlapping segments around the
// densest bursts of abrupt motion in accel. The result is sorted by start
// time and every segment is tagged auto. No spikes means no suggestions.
func Suggest(accel []telemetry.Sample, maxSegments int, opts Options) []segments.Segment {
	if maxSegments <= 0 {
		return []segments.Segment{}
	}

	bursts := group(spikes(accel, opts.DeltaThreshold), opts.BurstGap, opts.Pad)
	if len(bursts) == 0 {
		return []segments.Segment{}
	}

	sort.SliceStable(bursts, func(i, j int) bool { return bursts[i].score > bursts[j].score })

	picked := make([]segments.Segment, 0, maxSegments)
	for _, b := range bursts {
		if len(picked) >= maxSegments {
			break
		}
		cand := segments.Segment{StartTime: b.start, EndTime: b.end}
		if overlapsAny(picked, cand) {
			continue
		}
		picked = append(picked, segments.New(b.start, b.end, segments.SourceAuto))
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].StartTime < picked[j].StartTime })
	return picked
}

// spikes returns the times of samples whose L1 first difference exceeds
// threshold, in ascending order.
func spikes(accel []telemetry.Sample, threshold float64) []float64 {
	var times []float64
	for i := 1; i < len(accel); i++ {
		prev, cur := accel[i-1], accel[i]
		delta := math.Abs(cur.X-prev.X) + math.Abs(cur.Y-prev.Y) + math.Abs(cur.Z-prev.Z)
		if delta > threshold {
			times = append(times, cur.T)
		}
	}
	sort.Float64s(times)
	return times
}

func group(times []float64, gap, pad float64) []burst {
	if len(times) == 0 {
		return nil
	}

	var bursts []burst
	first, last, count := times[0], times[0], 1
	flush := func() {
		bursts = append(bursts, burst{
			start: math.Max(0, first-pad),
			end:   last + pad,
			score: count,
		})
	}

	for _, t := range times[1:] {
		if t-last <= gap {
			last = t
			count++
			continue
		}
		flush()
		first, last, count = t, t, 1
	}
	flush()
	return bursts
}

func overlapsAny(picked []segments.Segment, cand segments.Segment) bool {
	for _, p := range picked {
		if p.Overlaps(cand) {
			return true
		}
	}
	return false
}
