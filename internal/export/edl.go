package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// DefaultFrameRate is used when neither the request nor the footage gives one.
const DefaultFrameRate = 30.0

// reelLen is the CMX3600 reel field width.
const reelLen = 8

// GenerateEDL writes a CMX3600 edit list that plays clips back to back on
// the record side. Record positions advance in whole frames so rounding does
// not drift over long projects.
func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	tc := newTimecoder(frameRate)

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if tc.drop > 0 {
		b.WriteString("FCM: DROP FRAME\n\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n\n")
	}

	record := 0
	for i, clip := range clips {
		in, out := tc.frames(clip.StartMs), tc.frames(clip.EndMs)
		length := out - in

		fmt.Fprintf(&b, "%03d  %-*s V     C        %s %s %s %s\n",
			i+1, reelLen, reelName(clip.MediaPath),
			tc.format(in), tc.format(out), tc.format(record), tc.format(record+length))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", clip.ClipName)
		fmt.Fprintf(&b, "* SOURCE FILE:  %s\n", filepath.Base(clip.MediaPath))
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", clip.MediaPath)
		if clip.SegmentID != "" {
			fmt.Fprintf(&b, "* SEGMENT ID:  %s\n", clip.SegmentID)
		}

		record += length
	}
	return b.String()
}

// reelName is the upper-cased alphanumerics of the file's base name.
func reelName(mediaPath string) string {
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	reel := make([]byte, 0, reelLen)
	for _, r := range strings.ToUpper(base) {
		if len(reel) == reelLen {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			reel = append(reel, byte(r))
		}
	}
	if len(reel) == 0 {
		return "AX"
	}
	return string(reel)
}

// timecoder converts milliseconds to frames and frames to SMPTE timecode.
// 29.97 and 59.94 use drop-frame numbering.
type timecoder struct {
	rate    float64 // real frames per second
	nominal int     // frames per timecode second
	drop    int     // frame numbers skipped per minute, 0 for non-drop
}

func newTimecoder(frameRate float64) timecoder {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	tc := timecoder{rate: frameRate, nominal: int(math.Round(frameRate))}
	switch {
	case math.Abs(frameRate-29.97) < 0.01:
		tc.rate, tc.drop = 30000.0/1001.0, 2
	case math.Abs(frameRate-59.94) < 0.01:
		tc.rate, tc.drop = 60000.0/1001.0, 4
	default:
		tc.rate = float64(tc.nominal)
	}
	return tc
}

func (tc timecoder) frames(ms int) int {
	return int(math.Round(float64(ms) * tc.rate / 1000.0))
}

func (tc timecoder) format(frame int) string {
	sep := ":"
	if tc.drop > 0 {
		frame = tc.dropFrameNumber(frame)
		sep = ";"
	}
	ff := frame % tc.nominal
	secs := frame / tc.nominal
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", secs/3600, secs/60%60, secs%60, sep, ff)
}

// dropFrameNumber maps a frame count to its drop-frame label number: the
// first tc.drop labels of every minute are skipped except each tenth minute.
func (tc timecoder) dropFrameNumber(frame int) int {
	perMinute := tc.nominal*60 - tc.drop
	perTenMinutes := perMinute*10 + tc.drop

	tens, rest := frame/perTenMinutes, frame%perTenMinutes
	skipped := 9 * tc.drop * tens
	if rest > tc.drop {
		skipped += tc.drop * ((rest - tc.drop) / perMinute)
	}
	return frame + skipped
}
