package catalog

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrSlugTaken = errors.New("a project with that name already exists")
)

type Project struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Slug            string    `json:"slug"`
	MP4Filename     string    `json:"mp4_filename"`
	LRVFilename     string    `json:"lrv_filename,omitempty"`
	THMFilename     string    `json:"thm_filename,omitempty"`
	Path            string    `json:"path"`
	Size            int64     `json:"size"`
	Length          float64   `json:"length"`
	Mtime           time.Time `json:"mtime"`
	Fingerprint     string    `json:"fingerprint"`
	TelemetryStatus string    `json:"telemetry_status"`
	SegmentsSeeded  bool      `json:"segments_seeded"`
	CreatedAt       time.Time `json:"created_at"`
}

// Dir is the project folder the video and its sibling files live in.
func (v *Video) Dir() string {
	return filepath.Dir(v.Path)
}

// PreviewFilename is the low-resolution proxy when the camera wrote one.
func (v *Video) PreviewFilename() string {
	if v.LRVFilename != "" {
		return v.LRVFilename
	}
	return v.MP4Filename
}

const (
	JobTypeScan    = "scan"
	JobTypeExtract = "extract"
	JobTypeRender  = "render"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"

	TelemetryPending = "pending"
	TelemetryReady   = "ready"
	TelemetryEmpty   = "empty"
)

type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	ProjectID string    `json:"project_id,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var VideoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
}

// GoPro names chapters GX<chapter><file>.MP4 and writes the low-res proxy as
// GL<chapter><file>.LRV next to it.
var cameraPrefixes = []string{"GX", "GL", "GH", "GP"}

func NewID() string {
	return uuid.NewString()
}

// ProjectSlug lower-cases a folder name and replaces spaces with underscores.
func ProjectSlug(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// VideoSlug is the file's base name without extension or camera prefix, so
// GX010042.MP4, GL010042.LRV and GX010042.THM all share the slug 010042.
func VideoSlug(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	upper := strings.ToUpper(base)
	for _, p := range cameraPrefixes {
		if strings.HasPrefix(upper, p) && len(base) > len(p) {
			return base[len(p):]
		}
	}
	return base
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// MediaGroup is one recording: the MP4 plus whichever siblings exist.
type MediaGroup struct {
	Slug string
	MP4  string
	LRV  string
	THM  string
}

// GroupMedia pairs MP4s with their LRV proxy and THM thumbnail by slug.
// Siblings without an MP4 are ignored. Groups are ordered by slug.
func GroupMedia(filenames []string) []MediaGroup {
	groups := make(map[string]*MediaGroup)
	lrv := make(map[string]string)
	thm := make(map[string]string)

	for _, name := range filenames {
		if strings.HasPrefix(name, ".") {
			continue
		}
		slug := VideoSlug(name)
		switch ext := strings.ToLower(filepath.Ext(name)); {
		case IsVideoFile(name):
			if _, dup := groups[slug]; !dup {
				groups[slug] = &MediaGroup{Slug: slug, MP4: name}
			}
		case ext == ".lrv":
			lrv[slug] = name
		case ext == ".thm":
			thm[slug] = name
		}
	}

	out := make([]MediaGroup, 0, len(groups))
	for slug, g := range groups {
		g.LRV = lrv[slug]
		g.THM = thm[slug]
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
