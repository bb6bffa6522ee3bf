package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/trailcut/trailcut/internal/segments"
)

const maxClipNameLen = 160

// ClipsFromSegments turns a video's segment set into EDL events in set order.
// Zero-length segments have nothing to play and are dropped.
func ClipsFromSegments(mediaPath string, set segments.Set) []ResolvedClip {
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	clips := make([]ResolvedClip, 0, len(set))
	for _, s := range set {
		start, end := secondsToMs(s.StartTime), secondsToMs(s.EndTime)
		if end <= start {
			continue
		}
		clips = append(clips, ResolvedClip{
			ClipName:  SanitizeName(fmt.Sprintf("%s (%d)", base, len(clips)+1), maxClipNameLen),
			MediaPath: mediaPath,
			StartMs:   start,
			EndMs:     end,
			SegmentID: s.ID,
		})
	}
	return clips
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000))
}
