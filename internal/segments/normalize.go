package segments

import (
	"sort"
)

// Normalize merges candidate into existing and returns the canonical set:
// sorted by start, with every adjacent gap strictly greater than threshold.
//
// existing is expected to be normalized already; if it is not, it is sorted
// and re-merged rather than trusted. The candidate keeps its identity when it
// absorbs neighbours.
func Normalize(existing Set, candidate Segment, threshold float64) Set {
	if threshold < 0 {
		threshold = 0
	}
	if candidate.StartTime > candidate.EndTime {
		candidate.StartTime, candidate.EndTime = candidate.EndTime, candidate.StartTime
	}

	sorted := sortedCopy(existing)
	out := make(Set, 0, len(sorted)+1)
	work := candidate

	for _, s := range sorted {
		switch {
		case work.EndTime+threshold < s.StartTime:
			out = append(out, work)
			work = s
		case s.EndTime+threshold < work.StartTime:
			out = append(out, s)
		default:
			work = fuse(work, s)
		}
	}
	out = append(out, work)

	return coalesce(sortedCopy(out), threshold)
}

// Canonicalize normalizes a set with no new candidate. It is idempotent.
func Canonicalize(set Set, threshold float64) Set {
	if len(set) == 0 {
		return Set{}
	}
	if threshold < 0 {
		threshold = 0
	}
	return coalesce(sortedCopy(set), threshold)
}

// IsNormalized reports whether set is sorted with every gap above threshold.
func IsNormalized(set Set, threshold float64) bool {
	for i := range set {
		if set[i].StartTime > set[i].EndTime {
			return false
		}
		if i == 0 {
			continue
		}
		if set[i].StartTime < set[i-1].StartTime {
			return false
		}
		if set[i].StartTime-set[i-1].EndTime <= threshold {
			return false
		}
	}
	return true
}

func fuse(work, s Segment) Segment {
	if s.StartTime < work.StartTime {
		work.StartTime = s.StartTime
	}
	if s.EndTime > work.EndTime {
		work.EndTime = s.EndTime
	}
	return work
}

// coalesce merges neighbours of an already sorted set.
func coalesce(sorted Set, threshold float64) Set {
	if len(sorted) == 0 {
		return sorted
	}
	out := make(Set, 0, len(sorted))
	cur := sorted[0]
	for _, s := range sorted[1:] {
		if cur.EndTime+threshold < s.StartTime {
			out = append(out, cur)
			cur = s
			continue
		}
		cur = fuse(cur, s)
	}
	return append(out, cur)
}

func sortedCopy(set Set) Set {
	out := make(Set, 0, len(set))
	for _, s := range set {
		if s.StartTime > s.EndTime {
			s.StartTime, s.EndTime = s.EndTime, s.StartTime
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}
