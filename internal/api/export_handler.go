package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/export"
)

// exportHandler writes the project's segments as one EDL, videos in slug
// order and segments in time order.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		project, videos, err := cfg.Catalog.ProjectVideos(r.Context(), chi.URLParam(r, "project"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}

		selected, skipped := selectVideos(videos, req.Videos)

		var clips []export.ResolvedClip
		for _, v := range selected {
			videoClips := export.ClipsFromSegments(v.Video.Path, v.Segments)
			if len(videoClips) == 0 {
				skipped = append(skipped, v.Video.Slug)
				continue
			}
			clips = append(clips, videoClips...)
		}

		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no segments to export", "NOTHING_TO_EXPORT")
			return
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = videoFrameRate(r, cfg, clips[0].MediaPath)
		}

		title := export.SanitizeName(project.Name, 120)
		if title == "" {
			title = project.Slug
		}

		edl := export.GenerateEDL(clips, title, frameRate)
		outputPath := filepath.Join(req.OutputDir, export.EDLFilename(title))
		if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
			cfg.Logger.Error("failed to write export", "error", err, "project_slug", project.Slug)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("project exported", "project_slug", project.Slug, "clips", len(clips), "path", outputPath)
		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:        "ok",
			Format:        "edl",
			OutputPath:    outputPath,
			ClipCount:     len(clips),
			FrameRate:     frameRate,
			SkippedVideos: skipped,
		})
	}
}

// selectVideos narrows videos to the requested slugs. Requested slugs that
// do not exist are reported as skipped.
func selectVideos(videos []catalog.VideoSegments, slugs []string) ([]catalog.VideoSegments, []string) {
	skipped := make([]string, 0)
	if len(slugs) == 0 {
		return videos, skipped
	}

	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[strings.TrimSpace(s)] = true
	}

	selected := make([]catalog.VideoSegments, 0, len(slugs))
	for _, v := range videos {
		if want[v.Video.Slug] {
			selected = append(selected, v)
			delete(want, v.Video.Slug)
		}
	}
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if want[s] {
			skipped = append(skipped, s)
			delete(want, s)
		}
	}
	return selected, skipped
}

func videoFrameRate(r *http.Request, cfg ServerConfig, path string) float64 {
	if cfg.Media == nil {
		return export.DefaultFrameRate
	}
	meta, err := cfg.Media.Inspect(r.Context(), path)
	if err != nil || meta.FrameRate <= 0 {
		return export.DefaultFrameRate
	}
	return meta.FrameRate
}
