package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
)

const defaultJobsLimit = 50

// NewRouter builds the HTTP surface. Reads are open so the editor can load
// media and charts directly; every mutation needs the bearer token.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSMiddleware())

	r.Get("/health", healthHandler(cfg))
	r.Get("/status", statusHandler(cfg))
	r.Get("/projects", listProjectsHandler(cfg))
	r.Get("/jobs", listJobsHandler(cfg))
	r.Get("/jobs/{id}", getJobHandler(cfg))

	r.Route("/project/{project}", func(r chi.Router) {
		r.Get("/", getProjectHandler(cfg))
		r.Get("/videos", listVideosHandler(cfg))

		r.Route("/video/{video}", func(r chi.Router) {
			r.Get("/", getVideoHandler(cfg))
			r.Get("/thumbnail", thumbnailHandler(cfg))
			r.Get("/preview", previewHandler(cfg))
			r.Get("/chart", chartHandler(cfg))
			r.Get("/session", sessionSnapshotHandler(cfg))

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))
				r.Post("/segments", saveSegmentsHandler(cfg))
				r.Post("/suggest", suggestHandler(cfg))
				r.Post("/session/click", clickHandler(cfg))
				r.Post("/session/pointer-down", pointerDownHandler(cfg))
				r.Post("/session/pointer-move", pointerMoveHandler(cfg))
				r.Post("/session/pointer-up", pointerUpHandler(cfg))
				r.Post("/session/delete", deleteSegmentHandler(cfg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))
			r.Delete("/", deleteProjectHandler(cfg))
			r.Post("/scan", scanHandler(cfg))
			r.Post("/render", renderHandler(cfg))
			r.Post("/export", exportHandler(cfg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))
		r.Post("/projects", addProjectHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, _ := cfg.Catalog.CountProjects(ctx)
		videos, _ := cfg.Catalog.CountVideos(ctx)
		jobs, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:          state,
			LastError:      lastError,
			ProjectsCount:  projects,
			VideosCount:    videos,
			JobsRunning:    jobsRunning,
			ActiveJob:      activeJob,
			MediaAvailable: mediaAvailable(cfg),
		}
		if cfg.Sessions != nil {
			resp.OpenSessions = cfg.Sessions.Len()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Catalog.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := make([]ProjectSummaryResponse, len(projects))
		for i, p := range projects {
			resp[i] = ProjectToSummary(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddProjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		project, err := cfg.Catalog.AddProject(r.Context(), req.Path, req.Name)
		if errors.Is(err, catalog.ErrSlugTaken) {
			WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		job, err := cfg.Catalog.ScanProject(r.Context(), project.Slug)
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}

		WriteJSON(w, http.StatusCreated, AddProjectResponse{
			ProjectSummaryResponse: ProjectToSummary(project),
			JobID:                  job.ID,
		})
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, videos, err := cfg.Catalog.ProjectVideos(r.Context(), chi.URLParam(r, "project"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectResponse{
			Name:   project.Name,
			Videos: videoSummaries(videos),
		})
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, videos, err := cfg.Catalog.ProjectVideos(r.Context(), chi.URLParam(r, "project"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, videoSummaries(videos))
	}
}

func videoSummaries(videos []catalog.VideoSegments) []VideoSummaryResponse {
	out := make([]VideoSummaryResponse, len(videos))
	for i, v := range videos {
		out[i] = VideoSummaryResponse{
			Slug:        v.Video.Slug,
			MP4Filename: v.Video.MP4Filename,
			Length:      v.Video.Length,
			Segments:    nonNilSet(v.Segments),
		}
	}
	return out
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "project")
		if cfg.Sessions != nil {
			if err := cfg.Sessions.DropProject(r.Context(), slug); err != nil {
				cfg.Logger.Warn("pending session saves failed", "project_slug", slug, "error", err)
			}
		}
		if err := cfg.Catalog.RemoveProject(r.Context(), slug); err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := cfg.Catalog.VideoDetail(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "video"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoDetailToResponse(detail))
	}
}

func saveSegmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []SegmentInput
		if !decodeJSON(w, r, &body) {
			return
		}
		set := make(segments.Set, 0, len(body))
		for _, in := range body {
			set = append(set, in.Segment())
		}

		key := videoKey(r)
		dropSession(r, cfg, key)

		stored, err := cfg.Catalog.SaveSegments(r.Context(), key.Project, key.Video, set)
		if err != nil {
			writePersistError(w, cfg, key, err)
			return
		}
		WriteJSON(w, http.StatusOK, nonNilSet(stored))
	}
}

// suggestHandler replaces the set with scorer suggestions. A live editing
// session takes them as an ordinary edit so its save queue stays ordered.
func suggestHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		method := interest.Method(req.Method)
		key := videoKey(r)

		var live *session.Session
		if cfg.Sessions != nil {
			live = cfg.Sessions.Peek(key)
		}
		if live == nil {
			stored, err := cfg.Catalog.ApplySuggestions(r.Context(), key.Project, key.Video, method)
			if err != nil {
				writePersistError(w, cfg, key, err)
				return
			}
			WriteJSON(w, http.StatusOK, nonNilSet(stored))
			return
		}

		suggested, err := cfg.Catalog.Suggestions(r.Context(), key.Project, key.Video, method)
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		snap, err := live.Replace(suggested)
		if errors.Is(err, session.ErrDragging) {
			WriteError(w, http.StatusConflict, err.Error(), "DRAGGING")
			return
		}
		WriteJSON(w, http.StatusOK, nonNilSet(snap.Segments))
	}
}

func scanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Catalog.ScanProject(r.Context(), chi.URLParam(r, "project"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobCreatedResponse{JobID: job.ID})
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !mediaAvailable(cfg) {
			WriteError(w, http.StatusServiceUnavailable, "ffmpeg is not installed", "MEDIA_UNAVAILABLE")
			return
		}
		job, err := cfg.Catalog.QueueRender(r.Context(), chi.URLParam(r, "project"))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobCreatedResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultJobsLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 || n > 500 {
				WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500", "BAD_REQUEST")
				return
			}
			limit = n
		}

		jobs, err := cfg.Repository.ListJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func videoKey(r *http.Request) session.Key {
	return session.Key{Project: chi.URLParam(r, "project"), Video: chi.URLParam(r, "video")}
}

// dropSession closes a live editing session before its set is replaced from
// outside, so queued session saves land first and the next edit reloads.
func dropSession(r *http.Request, cfg ServerConfig, key session.Key) {
	if cfg.Sessions == nil {
		return
	}
	if err := cfg.Sessions.Drop(r.Context(), key); err != nil {
		cfg.Logger.Warn("pending session save failed",
			"project_slug", key.Project,
			"video_slug", key.Video,
			"error", err,
		)
	}
}

func mediaAvailable(cfg ServerConfig) bool {
	if cfg.Media == nil {
		return false
	}
	_, stub := cfg.Media.(*media.StubTool)
	return !stub
}

func writeCatalogError(w http.ResponseWriter, cfg ServerConfig, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, session.ErrUnknownVideo):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, catalog.ErrSlugTaken):
		WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
	default:
		cfg.Logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}

func writePersistError(w http.ResponseWriter, cfg ServerConfig, key session.Key, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
		return
	}
	cfg.Logger.Error("failed to persist segments",
		"project_slug", key.Project,
		"video_slug", key.Video,
		"error", err,
	)
	WriteError(w, http.StatusInternalServerError, "failed to persist segments", "PERSIST_FAILED")
}
