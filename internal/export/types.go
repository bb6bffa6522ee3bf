package export

// ExportRequest asks for an EDL of a project's segments. Videos narrows the
// export to the given video slugs; empty means every video with segments.
type ExportRequest struct {
	Format    string   `json:"format" validate:"omitempty,oneof=edl EDL"`
	FrameRate float64  `json:"frame_rate" validate:"gte=0,lte=240"`
	OutputDir string   `json:"output_dir" validate:"required"`
	Videos    []string `json:"videos,omitempty" validate:"dive,required"`
}

// ResolvedClip is one EDL event: a segment of a source file in milliseconds.
type ResolvedClip struct {
	ClipName  string
	MediaPath string
	StartMs   int
	EndMs     int
	SegmentID string
}

type ExportResponse struct {
	Status        string   `json:"status"`
	Format        string   `json:"format"`
	OutputPath    string   `json:"output_path"`
	ClipCount     int      `json:"clip_count"`
	FrameRate     float64  `json:"frame_rate"`
	SkippedVideos []string `json:"skipped_videos"`
}
