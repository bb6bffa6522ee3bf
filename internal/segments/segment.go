// Package segments holds the per-video segment model: closed time intervals
// kept sorted, merged and non-overlapping by Normalize.
package segments

import (
	"github.com/google/uuid"
)

const (
	SourceAuto = "auto"
	SourceUser = "user"

	// DefaultMergeThreshold is the gap in seconds at or below which two
	// neighbouring segments are fused.
	DefaultMergeThreshold = 1.0
)

// Segment is a closed interval [StartTime, EndTime] in seconds.
type Segment struct {
	ID        string  `json:"id,omitempty"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Source    string  `json:"source,omitempty"`
}

// Set is a video's segments, sorted by StartTime once normalized.
type Set []Segment

// New returns a segment with a fresh ID, swapping the bounds if needed.
func New(start, end float64, source string) Segment {
	if start > end {
		start, end = end, start
	}
	return Segment{
		ID:        uuid.New().String(),
		StartTime: start,
		EndTime:   end,
		Source:    source,
	}
}

func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Contains reports whether o lies entirely inside s.
func (s Segment) Contains(o Segment) bool {
	return s.StartTime <= o.StartTime && o.EndTime <= s.EndTime
}

// Overlaps reports inclusive overlap: touching endpoints count.
func (s Segment) Overlaps(o Segment) bool {
	return s.EndTime >= o.StartTime && o.EndTime >= s.StartTime
}

// Clamp restricts s to [0, duration]. A non-positive duration means the
// length is unknown and only the lower bound applies.
func Clamp(s Segment, duration float64) Segment {
	if s.StartTime < 0 {
		s.StartTime = 0
	}
	if s.EndTime < 0 {
		s.EndTime = 0
	}
	if duration > 0 {
		if s.EndTime > duration {
			s.EndTime = duration
		}
		if s.StartTime > duration {
			s.StartTime = duration
		}
	}
	return s
}

// TotalDuration sums the covered time of a normalized set.
func TotalDuration(set Set) float64 {
	total := 0.0
	for _, s := range set {
		total += s.Duration()
	}
	return total
}

// Clone returns a copy that does not share backing storage with set.
func Clone(set Set) Set {
	if set == nil {
		return nil
	}
	out := make(Set, len(set))
	copy(out, set)
	return out
}

// Remove drops the segment at index. Out-of-range indexes return an
// unchanged copy. Removal never creates overlaps so no re-normalization is
// needed.
func Remove(set Set, index int) Set {
	if index < 0 || index >= len(set) {
		return Clone(set)
	}
	out := make(Set, 0, len(set)-1)
	out = append(out, set[:index]...)
	return append(out, set[index+1:]...)
}

// IndexOf returns the index of the segment with the given ID, or -1.
func IndexOf(set Set, id string) int {
	for i, s := range set {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// EnsureIDs fills in missing IDs and sources, e.g. for sets posted by a
// client that only knows start/end pairs.
func EnsureIDs(set Set, source string) Set {
	out := Clone(set)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
		if out[i].Source == "" {
			out[i].Source = source
		}
	}
	return out
}
