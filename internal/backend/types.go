package backend

import (
	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/segments"
)

type ProjectSummary struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type VideoSummary struct {
	Slug        string       `json:"slug"`
	MP4Filename string       `json:"mp4_filename"`
	Length      float64      `json:"length"`
	Segments    segments.Set `json:"segments"`
}

type Project struct {
	Name   string         `json:"name"`
	Videos []VideoSummary `json:"videos"`
}

type VideoDetail struct {
	MP4Filename       string                   `json:"mp4_filename"`
	LRVFilename       string                   `json:"lrv_filename"`
	ProjectDirName    string                   `json:"project_dir_name"`
	InterestLevels    []interest.InterestPoint `json:"interest_levels"`
	SuggestedSegments segments.Set             `json:"suggested_segments"`
}
