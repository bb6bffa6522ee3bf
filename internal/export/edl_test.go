package export

import (
	"strings"
	"testing"

	"github.com/trailcut/trailcut/internal/segments"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []ResolvedClip{{
		ClipName:  "GX010042 (1)",
		MediaPath: "/media/alps/GX010042.MP4",
		StartMs:   0,
		EndMs:     2000,
		SegmentID: "seg-1",
	}}

	edl := GenerateEDL(clips, "Alps 2024", 30.0)

	if !strings.Contains(edl, "TITLE: Alps 2024") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  GX010042 V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	for _, want := range []string{
		"* FROM CLIP NAME:  GX010042 (1)",
		"* SOURCE FILE:  GX010042.MP4",
		"* MEDIA PATH:  /media/alps/GX010042.MP4",
		"* SEGMENT ID:  seg-1",
	} {
		if !strings.Contains(edl, want) {
			t.Fatalf("missing %q in EDL: %q", want, edl)
		}
	}
}

func TestGenerateEDL_MultipleClips(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "A", MediaPath: "/a.mp4", StartMs: 0, EndMs: 1000},
		{ClipName: "B", MediaPath: "/b.mp4", StartMs: 1000, EndMs: 2500},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "001  A        V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  B        V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
	if strings.Contains(edl, "SEGMENT ID") {
		t.Fatalf("segment id comment written without an id: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	clips := []ResolvedClip{{ClipName: "Clip", MediaPath: "/x.mp4", StartMs: 0, EndMs: 1000}}

	edl := GenerateEDL(clips, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestReelName(t *testing.T) {
	tests := map[string]string{
		"/m/GX010042.MP4":     "GX010042",
		"/m/holiday-2024.mov": "HOLIDAY2",
		"/m/---.mp4":          "AX",
	}
	for path, want := range tests {
		if got := reelName(path); got != want {
			t.Errorf("reelName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTimecoder(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		ms   int
		want string
	}{
		{"zero", 30, 0, "00:00:00:00"},
		{"one second", 30, 1000, "00:00:01:00"},
		{"fractional second", 30, 500, "00:00:00:15"},
		{"one minute", 30, 60000, "00:01:00:00"},
		{"one hour", 30, 3600000, "01:00:00:00"},
		{"25 fps", 25, 1040, "00:00:01:01"},
		{"23.976 rounds to 24", 23.976, 500, "00:00:00:12"},
		{"drop frame end of first minute", 29.97, 60027, "00:00:59;29"},
		{"drop frame skips two labels", 29.97, 60060, "00:01:00;02"},
		{"drop frame tenth minute keeps labels", 29.97, 600000, "00:10:00;00"},
		{"59.94 skips four labels", 59.94, 60060, "00:01:00;04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTimecoder(tt.rate)
			if got := tc.format(tc.frames(tt.ms)); got != tt.want {
				t.Errorf("timecode(%v fps, %d ms) = %q, want %q", tt.rate, tt.ms, got, tt.want)
			}
		})
	}
}

func TestGenerateEDL_RecordSideHasNoGaps(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "A", MediaPath: "/a.mp4", StartMs: 10, EndMs: 1010},
		{ClipName: "B", MediaPath: "/b.mp4", StartMs: 5017, EndMs: 6050},
	}

	edl := GenerateEDL(clips, "Gapless", 30)

	if !strings.Contains(edl, "00:00:00:00 00:00:01:00\n* FROM CLIP NAME:  A") {
		t.Errorf("first record range wrong: %q", edl)
	}
	if !strings.Contains(edl, "00:00:05:01 00:00:06:02 00:00:01:00 00:00:02:01") {
		t.Errorf("second record range should start where the first ended: %q", edl)
	}
}

func TestClipsFromSegments(t *testing.T) {
	set := segments.Set{
		{ID: "a", StartTime: 1.2345, EndTime: 4},
		{ID: "b", StartTime: 7, EndTime: 7},
		{ID: "c", StartTime: 10, EndTime: 12.5},
	}

	clips := ClipsFromSegments("/media/GX010042.MP4", set)

	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2 (zero-length dropped)", len(clips))
	}
	if clips[0].StartMs != 1235 || clips[0].EndMs != 4000 || clips[0].SegmentID != "a" {
		t.Errorf("first clip = %+v", clips[0])
	}
	if clips[1].ClipName != "GX010042 (2)" || clips[1].EndMs != 12500 {
		t.Errorf("second clip = %+v", clips[1])
	}
}
