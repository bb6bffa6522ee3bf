package api

import (
	"path/filepath"
	"time"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string       `json:"state"`
	LastError      string       `json:"last_error,omitempty"`
	ProjectsCount  int          `json:"projects_count"`
	VideosCount    int          `json:"videos_count"`
	JobsRunning    int          `json:"jobs_running"`
	ActiveJob      *JobResponse `json:"active_job,omitempty"`
	OpenSessions   int          `json:"open_sessions"`
	MediaAvailable bool         `json:"media_available"`
}

type AddProjectRequest struct {
	Path string `json:"path" validate:"required"`
	Name string `json:"name,omitempty" validate:"omitempty,max=120"`
}

type ProjectSummaryResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type AddProjectResponse struct {
	ProjectSummaryResponse
	JobID string `json:"job_id"`
}

type VideoSummaryResponse struct {
	Slug        string       `json:"slug"`
	MP4Filename string       `json:"mp4_filename"`
	Length      float64      `json:"length"`
	Segments    segments.Set `json:"segments"`
}

type ProjectResponse struct {
	Name   string                 `json:"name"`
	Videos []VideoSummaryResponse `json:"videos"`
}

type VideoDetailResponse struct {
	MP4Filename       string                   `json:"mp4_filename"`
	LRVFilename       string                   `json:"lrv_filename"`
	ProjectDirName    string                   `json:"project_dir_name"`
	Length            float64                  `json:"length"`
	TelemetryStatus   string                   `json:"telemetry_status"`
	InterestLevels    []interest.InterestPoint `json:"interest_levels"`
	SuggestedSegments segments.Set             `json:"suggested_segments"`
	Segments          segments.Set             `json:"segments"`
}

// SegmentInput is one element of a segments save body.
type SegmentInput struct {
	ID        string  `json:"id,omitempty" validate:"omitempty,max=64"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
	EndTime   float64 `json:"end_time" validate:"gte=0,gtefield=StartTime"`
	Source    string  `json:"source,omitempty" validate:"omitempty,oneof=user auto"`
}

func (in SegmentInput) Segment() segments.Segment {
	return segments.Segment{ID: in.ID, StartTime: in.StartTime, EndTime: in.EndTime, Source: in.Source}
}

type JobCreatedResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ClickRequest places a draft bound at time T (seconds). Cancel drops a
// pending draft instead.
type ClickRequest struct {
	T      *float64 `json:"t" validate:"omitempty,gte=0"`
	Cancel bool     `json:"cancel,omitempty"`
}

// PointerRequest is a pointer position over a chart of Width pixels whose
// time axis starts at Offset.
type PointerRequest struct {
	X      float64 `json:"x"`
	Offset float64 `json:"offset"`
	Width  float64 `json:"width" validate:"gt=0"`
}

// SuggestRequest picks the suggestion method. An empty body uses the
// configured default.
type SuggestRequest struct {
	Method string `json:"method,omitempty" validate:"omitempty,oneof=spikes levels"`
}

type DeleteSegmentRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type SessionResponse struct {
	session.Snapshot
	Duration float64 `json:"duration"`
	// Hit is set on pointer-down and reports whether a drag started.
	Hit *bool `json:"hit,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToSummary(p *catalog.Project) ProjectSummaryResponse {
	return ProjectSummaryResponse{Slug: p.Slug, Name: p.Name}
}

func JobToResponse(j *catalog.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		ProjectID: j.ProjectID,
		VideoID:   j.VideoID,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func VideoDetailToResponse(d *catalog.VideoDetail) VideoDetailResponse {
	return VideoDetailResponse{
		MP4Filename:       d.Video.MP4Filename,
		LRVFilename:       d.Video.LRVFilename,
		ProjectDirName:    filepath.Base(d.Project.Path),
		Length:            d.Video.Length,
		TelemetryStatus:   d.Video.TelemetryStatus,
		InterestLevels:    nonNilLevels(d.InterestLevels),
		SuggestedSegments: nonNilSet(d.Suggested),
		Segments:          nonNilSet(d.Segments),
	}
}

func nonNilSet(set segments.Set) segments.Set {
	if set == nil {
		return segments.Set{}
	}
	return set
}

func nonNilLevels(levels []interest.InterestPoint) []interest.InterestPoint {
	if levels == nil {
		return []interest.InterestPoint{}
	}
	return levels
}
