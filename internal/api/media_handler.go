package api

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/chart"
	"github.com/trailcut/trailcut/internal/playback"
)

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveVideoFile(w, r, cfg, func(v *catalog.Video) string { return v.THMFilename })
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveVideoFile(w, r, cfg, (*catalog.Video).PreviewFilename)
	}
}

// serveVideoFile streams one of a video's sibling files from the project
// folder.
func serveVideoFile(w http.ResponseWriter, r *http.Request, cfg ServerConfig, pick func(*catalog.Video) string) {
	project, video, err := cfg.Catalog.GetVideo(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "video"))
	if err != nil {
		writeCatalogError(w, cfg, err)
		return
	}
	if !project.Present {
		WriteError(w, http.StatusNotFound,
			"file not available - project folder '"+project.Path+"' is missing",
			"PROJECT_MISSING")
		return
	}

	name := pick(video)
	if name == "" {
		WriteError(w, http.StatusNotFound, "file not found", "NOT_FOUND")
		return
	}

	err = cfg.PlaybackServer.ServeFile(w, r, filepath.Join(video.Dir(), name))
	if errors.Is(err, playback.ErrFileMissing) {
		WriteError(w, http.StatusNotFound, "file not found", "NOT_FOUND")
		return
	}
	if err != nil {
		cfg.Logger.Error("playback error", "error", err, "project_slug", project.Slug, "video_slug", video.Slug)
	}
}

func chartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := cfg.Catalog.VideoDetail(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "video"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}

		var buf bytes.Buffer
		err = chart.Render(&buf, chart.Input{
			Title:      detail.Video.MP4Filename,
			Subtitle:   detail.Project.Name,
			Duration:   detail.Video.Length,
			Levels:     detail.InterestLevels,
			Segments:   detail.Segments,
			Suggested:  detail.Suggested,
			AssetsHost: cfg.ChartAssetsHost,
		})
		if err != nil {
			cfg.Logger.Error("chart render failed", "error", err, "video_slug", detail.Video.Slug)
			WriteError(w, http.StatusInternalServerError, "failed to render chart", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
