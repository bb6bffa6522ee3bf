package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trailcut/trailcut/internal/segments"
)

// SegmentsDir is where cuts and joined renders are written, inside the
// project folder.
const SegmentsDir = "segments"

// SegmentFilename names the cut of one segment: <base>_segment_<start>_<end><ext>
// with whole-second bounds.
func SegmentFilename(videoFilename string, seg segments.Segment) string {
	ext := filepath.Ext(videoFilename)
	base := strings.TrimSuffix(videoFilename, ext)
	return fmt.Sprintf("%s_segment_%d_%d%s", base, int(seg.StartTime), int(seg.EndTime), ext)
}

// JoinedFilename names the concatenation of a video's cuts.
func JoinedFilename(videoFilename string) string {
	return videoFilename + "_joined.mp4"
}

// Progress reports one finished step of a render.
type Progress func(done, total int)

// RenderRequest describes one video to cut and join.
type RenderRequest struct {
	VideoPath string
	OutDir    string
	Segments  segments.Set
	// Finish re-encodes every cut with fades before the join.
	Finish Finish
}

// RenderResult lists what a render wrote or reused.
type RenderResult struct {
	// Cuts are the files that were joined, the faded copies when finishing.
	Cuts    []string
	Joined  string
	Skipped int
}

// Render cuts every segment of req into OutDir and joins the cuts. With a
// finish enabled each cut is first re-encoded into its faded copy and the
// faded copies are joined. Files that already exist are reused, so a re-run
// only does the missing work. A video without segments renders nothing.
func Render(ctx context.Context, tool Tool, req RenderRequest, progress Progress) (*RenderResult, error) {
	result := &RenderResult{}
	if len(req.Segments) == 0 {
		return result, nil
	}
	var finisher Finisher
	if req.Finish.Enabled() {
		f, ok := tool.(Finisher)
		if !ok {
			return nil, ErrFinishUnsupported
		}
		finisher = f
	}
	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create segments dir: %w", err)
	}

	name := filepath.Base(req.VideoPath)
	total := len(req.Segments) + 1

	for i, seg := range req.Segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		out := filepath.Join(req.OutDir, SegmentFilename(name, seg))
		if exists(out) {
			result.Skipped++
		} else if err := tool.Cut(ctx, req.VideoPath, out, seg.StartTime, seg.Duration()); err != nil {
			return result, fmt.Errorf("cut segment %d of %s: %w", i, name, err)
		}
		if finisher != nil {
			cut := out
			out = FadedFilename(cut)
			if exists(out) {
				result.Skipped++
			} else if err := finisher.Fade(ctx, cut, out, req.Finish.Fade); err != nil {
				return result, fmt.Errorf("fade segment %d of %s: %w", i, name, err)
			}
		}
		result.Cuts = append(result.Cuts, out)
		if progress != nil {
			progress(i+1, total)
		}
	}

	joined := filepath.Join(req.OutDir, JoinedFilename(name))
	if exists(joined) {
		result.Skipped++
	} else if err := tool.Concat(ctx, result.Cuts, joined); err != nil {
		return result, fmt.Errorf("join segments of %s: %w", name, err)
	}
	result.Joined = joined
	if progress != nil {
		progress(total, total)
	}
	return result, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
