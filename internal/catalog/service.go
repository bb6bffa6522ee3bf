package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
	"github.com/trailcut/trailcut/internal/telemetry"
)

const fingerprintSize = 64 * 1024

// Options are the tunables of segment handling and scoring.
type Options struct {
	MergeThreshold  float64
	Scoring         interest.Options
	MaxSuggestions  int
	SmoothingWindow int
	Resolution      float64
	// Method is the suggestion strategy used when a caller names none.
	Method       interest.Method
	LevelScoring interest.LevelOptions
	// Finish adds fades to rendered cuts and, with a title, a project final
	// cut behind a title card.
	Finish media.Finish
}

func DefaultOptions() Options {
	return Options{
		MergeThreshold:  segments.DefaultMergeThreshold,
		Scoring:         interest.DefaultOptions(),
		MaxSuggestions:  interest.DefaultMaxSegments,
		SmoothingWindow: interest.DefaultSmoothingWindow,
		Resolution:      interest.DefaultResolution,
		Method:          interest.MethodSpikes,
		LevelScoring:    interest.DefaultLevelOptions(),
	}
}

// VideoDetail is everything the editor needs to open one video.
type VideoDetail struct {
	Project        *Project
	Video          *Video
	Segments       segments.Set
	InterestLevels []interest.InterestPoint
	Suggested      segments.Set
}

// VideoSegments pairs a video with its stored set.
type VideoSegments struct {
	Video    *Video
	Segments segments.Set
}

type Service struct {
	repo      Repository
	telemetry *telemetry.Loader
	media     media.Tool
	opts      Options
	logger    *slog.Logger
	// notify is called after a job is queued.
	notify func()
}

func NewService(repo Repository, loader *telemetry.Loader, tool media.Tool, opts Options, logger *slog.Logger) *Service {
	return &Service{repo: repo, telemetry: loader, media: tool, opts: opts, logger: logger}
}

func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) AddProject(ctx context.Context, path, name string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}

	existing, err := s.repo.GetProjectByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if name == "" {
		name = filepath.Base(absPath)
	}
	slug := ProjectSlug(name)

	taken, err := s.repo.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	}

	project := &Project{
		ID:        NewID(),
		Slug:      slug,
		Name:      name,
		Path:      absPath,
		Present:   true,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.info("project added", "project_slug", slug, "path", absPath)
	return project, nil
}

// RemoveProject forgets a project. Files on disk are left alone.
func (s *Service) RemoveProject(ctx context.Context, slug string) error {
	project, err := s.requireProject(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, project.ID); err != nil {
		return err
	}
	s.info("project removed", "project_slug", slug)
	return nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) GetProject(ctx context.Context, slug string) (*Project, error) {
	return s.repo.GetProjectBySlug(ctx, slug)
}

// ProjectVideos returns the project's videos with their stored sets.
func (s *Service) ProjectVideos(ctx context.Context, slug string) (*Project, []VideoSegments, error) {
	project, err := s.requireProject(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	videos, err := s.repo.ListVideos(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}

	out := make([]VideoSegments, 0, len(videos))
	for _, v := range videos {
		set, err := s.repo.ListSegments(ctx, v.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list segments of %s: %w", v.Slug, err)
		}
		out = append(out, VideoSegments{Video: v, Segments: set})
	}
	return project, out, nil
}

func (s *Service) GetVideo(ctx context.Context, projectSlug, videoSlug string) (*Project, *Video, error) {
	project, err := s.requireProject(ctx, projectSlug)
	if err != nil {
		return nil, nil, err
	}
	video, err := s.repo.GetVideoBySlug(ctx, project.ID, videoSlug)
	if err != nil {
		return nil, nil, err
	}
	if video == nil {
		return nil, nil, fmt.Errorf("video %s: %w", videoSlug, ErrNotFound)
	}
	return project, video, nil
}

// VideoDetail assembles the editor view. Telemetry is only read when already
// extracted; a request never waits on the extractor.
func (s *Service) VideoDetail(ctx context.Context, projectSlug, videoSlug string) (*VideoDetail, error) {
	project, video, err := s.GetVideo(ctx, projectSlug, videoSlug)
	if err != nil {
		return nil, err
	}
	set, err := s.repo.ListSegments(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	detail := &VideoDetail{
		Project:        project,
		Video:          video,
		Segments:       set,
		InterestLevels: []interest.InterestPoint{},
	}

	series := s.cachedTelemetry(ctx, video)
	detail.Suggested = s.suggest(series, video.Length, "")

	sidecar, err := ReadSegmentsSidecar(video.Path)
	if err != nil {
		s.warn("segments sidecar unreadable", "video_slug", video.Slug, "error", err)
	}
	if sidecar != nil && len(sidecar.InterestLevels) > 0 {
		detail.InterestLevels = sidecar.InterestLevels
	} else if !series.Empty() {
		detail.InterestLevels = interest.Levels(series.Accel, series.Gyro, s.opts.SmoothingWindow, s.opts.Resolution)
	}
	return detail, nil
}

func (s *Service) Segments(ctx context.Context, projectSlug, videoSlug string) (segments.Set, *Video, error) {
	_, video, err := s.GetVideo(ctx, projectSlug, videoSlug)
	if err != nil {
		return nil, nil, err
	}
	set, err := s.repo.ListSegments(ctx, video.ID)
	if err != nil {
		return nil, nil, err
	}
	return set, video, nil
}

// SaveSegments replaces the video's set with the canonical form of set and
// returns what was stored. The sidecar is refreshed on a best-effort basis.
func (s *Service) SaveSegments(ctx context.Context, projectSlug, videoSlug string, set segments.Set) (segments.Set, error) {
	_, video, err := s.GetVideo(ctx, projectSlug, videoSlug)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, video, set)
}

func (s *Service) store(ctx context.Context, video *Video, set segments.Set) (segments.Set, error) {
	canonical := s.canonicalize(set, video.Length)
	if err := s.repo.ReplaceSegments(ctx, video.ID, canonical); err != nil {
		return nil, fmt.Errorf("persist segments of %s: %w", video.Slug, err)
	}
	if !video.SegmentsSeeded {
		if err := s.repo.MarkSegmentsSeeded(ctx, video.ID); err != nil {
			s.warn("failed to mark segments seeded", "video_slug", video.Slug, "error", err)
		}
		video.SegmentsSeeded = true
	}
	s.writeSidecar(video, canonical, nil)
	return canonical, nil
}

// Suggestions runs the scorer over cached telemetry without storing the
// result. An empty method uses the configured default.
func (s *Service) Suggestions(ctx context.Context, projectSlug, videoSlug string, method interest.Method) (segments.Set, error) {
	_, video, err := s.GetVideo(ctx, projectSlug, videoSlug)
	if err != nil {
		return nil, err
	}
	return s.canonicalize(s.suggest(s.cachedTelemetry(ctx, video), video.Length, method), video.Length), nil
}

// ApplySuggestions replaces the set with a fresh run of the scorer.
func (s *Service) ApplySuggestions(ctx context.Context, projectSlug, videoSlug string, method interest.Method) (segments.Set, error) {
	_, video, err := s.GetVideo(ctx, projectSlug, videoSlug)
	if err != nil {
		return nil, err
	}
	series := s.cachedTelemetry(ctx, video)
	return s.store(ctx, video, s.suggest(series, video.Length, method))
}

// Persist implements session.Persister on top of the catalog.
func (s *Service) Persist(ctx context.Context, key session.Key, set segments.Set) error {
	_, err := s.SaveSegments(ctx, key.Project, key.Video, set)
	return err
}

// SessionLoader opens editing sessions from the stored set.
func (s *Service) SessionLoader() session.Loader {
	return func(ctx context.Context, key session.Key) (segments.Set, float64, error) {
		set, video, err := s.Segments(ctx, key.Project, key.Video)
		if errors.Is(err, ErrNotFound) {
			return nil, 0, session.ErrUnknownVideo
		}
		if err != nil {
			return nil, 0, err
		}
		return set, video.Length, nil
	}
}

func (s *Service) ScanProject(ctx context.Context, slug string) (*Job, error) {
	project, err := s.requireProject(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.queueJob(ctx, JobTypeScan, project.ID, "")
}

// ProjectFolders lists the folders of all registered projects.
func (s *Service) ProjectFolders(ctx context.Context) ([]string, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(projects))
	for _, p := range projects {
		paths = append(paths, p.Path)
	}
	return paths, nil
}

// FolderChanged reacts to a change seen on a project folder. A folder that
// disappeared marks the project missing; anything else queues a rescan.
// Paths that belong to no project are ignored.
func (s *Service) FolderChanged(ctx context.Context, path string, gone bool) error {
	project, err := s.repo.GetProjectByPath(ctx, path)
	if err != nil {
		return err
	}
	if project == nil {
		return nil
	}
	if gone {
		s.info("project folder missing", "project_slug", project.Slug, "path", path)
		return s.repo.UpdateProjectPresent(ctx, project.ID, false)
	}
	_, err = s.queueJob(ctx, JobTypeScan, project.ID, "")
	return err
}

func (s *Service) QueueRender(ctx context.Context, slug string) (*Job, error) {
	project, err := s.requireProject(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.queueJob(ctx, JobTypeRender, project.ID, "")
}

// queueJob returns the already queued job of the same kind instead of
// stacking duplicates.
func (s *Service) queueJob(ctx context.Context, jobType, projectID, videoID string) (*Job, error) {
	active, err := s.repo.FindActiveJob(ctx, jobType, projectID, videoID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		Type:      jobType,
		Status:    JobStatusPending,
		ProjectID: projectID,
		VideoID:   videoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.info("job created", "job_id", job.ID, "type", jobType, "project_id", projectID)
	if s.notify != nil {
		s.notify()
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) CountProjects(ctx context.Context) (int, error) {
	return s.repo.CountProjects(ctx)
}

func (s *Service) CountVideos(ctx context.Context) (int, error) {
	return s.repo.CountVideos(ctx)
}

// ExecuteScan indexes the recordings in the project folder, drops videos
// whose MP4 is gone and queues telemetry extraction for new footage.
func (s *Service) ExecuteScan(ctx context.Context, jobID string, project *Project) error {
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, "")
	s.info("starting scan", "job_id", jobID, "project_slug", project.Slug)

	entries, err := os.ReadDir(project.Path)
	if err != nil {
		s.repo.UpdateProjectPresent(ctx, project.ID, false)
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}
	if !project.Present {
		s.repo.UpdateProjectPresent(ctx, project.ID, true)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	groups := GroupMedia(names)
	total := len(groups)
	seen := make(map[string]bool, total)

	for i, g := range groups {
		select {
		case <-ctx.Done():
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, "cancelled")
			return ctx.Err()
		default:
		}

		seen[g.Slug] = true
		if err := s.processGroup(ctx, project, g); err != nil {
			s.warn("failed to process video", "project_slug", project.Slug, "video_slug", g.Slug, "error", err)
		}

		progress := 0
		if total > 0 {
			progress = (i + 1) * 100 / total
		}
		s.repo.UpdateJobProgress(ctx, jobID, progress)
	}

	s.pruneMissing(ctx, project, seen)
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, "")
	s.info("scan completed", "job_id", jobID, "videos", total)

	s.createExtractJobs(ctx, project)
	return nil
}

func (s *Service) processGroup(ctx context.Context, project *Project, g MediaGroup) error {
	path := filepath.Join(project.Path, g.MP4)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	fingerprint, err := computeFingerprint(path)
	if err != nil {
		return err
	}

	length := 0.0
	if meta, err := s.media.Inspect(ctx, path); err != nil {
		s.warn("failed to read video length", "video_slug", g.Slug, "error", err)
	} else {
		length = meta.Duration
	}

	video := &Video{
		ID:          NewID(),
		ProjectID:   project.ID,
		Slug:        g.Slug,
		MP4Filename: g.MP4,
		LRVFilename: g.LRV,
		THMFilename: g.THM,
		Path:        path,
		Size:        info.Size(),
		Length:      length,
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.UpsertVideo(ctx, video); err != nil {
		return err
	}

	stored, err := s.repo.GetVideoBySlug(ctx, project.ID, g.Slug)
	if err != nil || stored == nil {
		return err
	}
	if !stored.SegmentsSeeded {
		s.importSidecar(ctx, stored)
	}
	return nil
}

// importSidecar adopts a segments sidecar left by an earlier edit of the
// same folder.
func (s *Service) importSidecar(ctx context.Context, video *Video) {
	sidecar, err := ReadSegmentsSidecar(video.Path)
	if err != nil {
		s.warn("segments sidecar unreadable", "video_slug", video.Slug, "error", err)
		return
	}
	if sidecar == nil || len(sidecar.Segments) == 0 {
		return
	}
	canonical := s.canonicalize(sidecar.Segments, video.Length)
	if err := s.repo.ReplaceSegments(ctx, video.ID, canonical); err != nil {
		s.warn("failed to import segments sidecar", "video_slug", video.Slug, "error", err)
		return
	}
	s.repo.MarkSegmentsSeeded(ctx, video.ID)
	s.info("imported segments sidecar", "video_slug", video.Slug, "segments", len(canonical))
}

func (s *Service) pruneMissing(ctx context.Context, project *Project, seen map[string]bool) {
	videos, err := s.repo.ListVideos(ctx, project.ID)
	if err != nil {
		s.warn("failed to list videos for pruning", "project_slug", project.Slug, "error", err)
		return
	}
	for _, v := range videos {
		if seen[v.Slug] {
			continue
		}
		if err := s.repo.DeleteVideo(ctx, v.ID); err != nil {
			s.warn("failed to remove missing video", "video_slug", v.Slug, "error", err)
			continue
		}
		s.info("removed missing video", "project_slug", project.Slug, "video_slug", v.Slug)
	}
}

func (s *Service) createExtractJobs(ctx context.Context, project *Project) {
	videos, err := s.repo.ListVideos(ctx, project.ID)
	if err != nil {
		s.logError("failed to list videos for extract job creation", "project_slug", project.Slug, "error", err)
		return
	}

	created := 0
	for _, v := range videos {
		if v.TelemetryStatus != TelemetryPending {
			continue
		}
		if _, err := s.queueJob(ctx, JobTypeExtract, project.ID, v.ID); err != nil {
			s.warn("failed to create extract job", "video_slug", v.Slug, "error", err)
			continue
		}
		created++
	}
	s.info("queued extract jobs", "project_slug", project.Slug, "count", created)
}

// ExecuteExtract loads (extracting if needed) the video's telemetry, records
// the interest curve in the sidecar and seeds the set from the scorer the
// first time footage is seen.
func (s *Service) ExecuteExtract(ctx context.Context, jobID string, video *Video) error {
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, "")

	series := s.telemetry.Load(ctx, video.Path)
	if err := ctx.Err(); err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, "cancelled")
		return err
	}

	status := TelemetryReady
	if series.Empty() {
		status = TelemetryEmpty
	}
	if err := s.repo.UpdateVideoTelemetry(ctx, video.ID, status); err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}
	s.repo.UpdateJobProgress(ctx, jobID, 50)

	levels := interest.Levels(series.Accel, series.Gyro, s.opts.SmoothingWindow, s.opts.Resolution)

	set, err := s.repo.ListSegments(ctx, video.ID)
	if err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}
	if !video.SegmentsSeeded && len(set) == 0 {
		set = s.canonicalize(s.suggest(series, video.Length, ""), video.Length)
		if err := s.repo.ReplaceSegments(ctx, video.ID, set); err != nil {
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
			return err
		}
		s.info("seeded segments from telemetry", "video_slug", video.Slug, "segments", len(set))
	}
	if !video.SegmentsSeeded {
		s.repo.MarkSegmentsSeeded(ctx, video.ID)
	}
	s.writeSidecar(video, set, levels)

	s.repo.UpdateJobProgress(ctx, jobID, 100)
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, "")
	s.info("telemetry extracted", "job_id", jobID, "video_slug", video.Slug, "status", status,
		"accel_samples", len(series.Accel), "gyro_samples", len(series.Gyro))
	return nil
}

// ExecuteRender cuts every stored segment of every video in the project and
// joins each video's cuts into <project>/segments.
func (s *Service) ExecuteRender(ctx context.Context, jobID string, project *Project) error {
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, "")

	_, videos, err := s.ProjectVideos(ctx, project.Slug)
	if err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}

	var work []VideoSegments
	steps := 0
	for _, vs := range videos {
		if len(vs.Segments) > 0 {
			work = append(work, vs)
			steps += len(vs.Segments) + 1
		}
	}

	outDir := filepath.Join(project.Path, media.SegmentsDir)
	done := 0
	var joined []string
	for _, vs := range work {
		base := done
		result, err := media.Render(ctx, s.media, media.RenderRequest{
			VideoPath: vs.Video.Path,
			OutDir:    outDir,
			Segments:  vs.Segments,
			Finish:    s.opts.Finish,
		}, func(n, _ int) {
			s.repo.UpdateJobProgress(ctx, jobID, (base+n)*100/steps)
		})
		if err != nil {
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
			return err
		}
		done += len(vs.Segments) + 1
		joined = append(joined, result.Joined)
		s.info("video rendered", "job_id", jobID, "video_slug", vs.Video.Slug,
			"cuts", len(result.Cuts), "reused", result.Skipped, "joined", filepath.Base(result.Joined))
	}

	if s.opts.Finish.Title != "" && len(joined) > 0 {
		finalCut, err := media.FinalCut(ctx, s.media, media.FinalCutRequest{
			OutDir: outDir,
			Joined: joined,
			Card:   s.titleCard(ctx, work[0].Video),
		})
		if err != nil {
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
			return err
		}
		s.info("final cut written", "job_id", jobID, "project_slug", project.Slug, "file", filepath.Base(finalCut))
	}

	s.repo.UpdateJobProgress(ctx, jobID, 100)
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, "")
	s.info("render completed", "job_id", jobID, "project_slug", project.Slug, "videos", len(work))
	return nil
}

// titleCard sizes the card after the first rendered video so the final cut
// joins without re-encoding.
func (s *Service) titleCard(ctx context.Context, video *Video) media.TitleCard {
	card := media.TitleCard{Title: s.opts.Finish.Title, Subtitle: s.opts.Finish.Subtitle}
	meta, err := s.media.Inspect(ctx, video.Path)
	if err != nil {
		s.warn("failed to size title card", "video_slug", video.Slug, "error", err)
		return card
	}
	card.Width, card.Height, card.FrameRate = meta.Width, meta.Height, meta.FrameRate
	return card
}

func (s *Service) requireProject(ctx context.Context, slug string) (*Project, error) {
	project, err := s.repo.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", slug, ErrNotFound)
	}
	return project, nil
}

func (s *Service) cachedTelemetry(ctx context.Context, video *Video) telemetry.Series {
	if s.telemetry == nil || !telemetry.Cached(video.Path) {
		return telemetry.Series{}
	}
	return s.telemetry.Load(ctx, video.Path)
}

func (s *Service) suggest(series telemetry.Series, length float64, method interest.Method) segments.Set {
	if method == "" {
		method = s.opts.Method
	}

	var suggested segments.Set
	switch method {
	case interest.MethodLevels:
		levels := interest.Levels(series.Accel, series.Gyro, s.opts.SmoothingWindow, 0)
		suggested = interest.LevelSegments(levels, s.opts.LevelScoring)
	default:
		suggested = interest.Suggest(series.Accel, s.opts.MaxSuggestions, s.opts.Scoring)
	}
	for i := range suggested {
		suggested[i] = segments.Clamp(suggested[i], length)
	}
	return suggested
}

// canonicalize fills IDs, clamps to the video and sorts and merges.
func (s *Service) canonicalize(set segments.Set, length float64) segments.Set {
	out := segments.EnsureIDs(set, segments.SourceUser)
	for i := range out {
		out[i] = segments.Clamp(out[i], length)
	}
	out = segments.Canonicalize(out, s.opts.MergeThreshold)
	if out == nil {
		out = segments.Set{}
	}
	return out
}

// writeSidecar mirrors the set into <base>.segments.json. Nil levels keep
// whatever curve the sidecar already holds.
func (s *Service) writeSidecar(video *Video, set segments.Set, levels []interest.InterestPoint) {
	if levels == nil {
		if existing, err := ReadSegmentsSidecar(video.Path); err == nil && existing != nil {
			levels = existing.InterestLevels
		}
	}
	if err := WriteSegmentsSidecar(video.Path, &SegmentsFile{Segments: set, InterestLevels: levels}); err != nil {
		s.warn("failed to write segments sidecar", "video_slug", video.Slug, "error", err)
	}
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, fingerprintSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
