package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trailcut/trailcut/internal/logging"
)

const defaultPollInterval = 5 * time.Second

// errMissingTarget fails a job whose project or video no longer exists.
var errMissingTarget = errors.New("job target not found")

type jobHandler func(ctx context.Context, job *Job) error

// Runner works through pending jobs one at a time, oldest first. It drains
// the queue on every poll and on every Wake.
type Runner struct {
	service      *Service
	repo         Repository
	logger       *slog.Logger
	pollInterval time.Duration
	handlers     map[string]jobHandler
	wake         chan struct{}
	running      atomic.Bool
	paused       atomic.Bool
}

// NewRunner also registers the runner with service so queued jobs start
// without waiting for the next poll.
func NewRunner(service *Service, repo Repository, logger *slog.Logger) *Runner {
	r := &Runner{
		service:      service,
		repo:         repo,
		logger:       logger,
		pollInterval: defaultPollInterval,
		wake:         make(chan struct{}, 1),
	}
	r.handlers = map[string]jobHandler{
		JobTypeScan:    r.runScan,
		JobTypeExtract: r.runExtract,
		JobTypeRender:  r.runRender,
	}
	service.notify = r.Wake
	return r
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.running.Store(false)

	r.logger.Info("job runner started", "poll_interval", r.pollInterval.String())

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.drain(ctx)
	}
}

// Wake asks a started runner to look at the queue now.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) drain(ctx context.Context) {
	for ctx.Err() == nil && !r.paused.Load() && r.processNextJob(ctx) {
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
	r.Wake()
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// processNextJob runs the oldest pending job and reports whether there was
// one.
func (r *Runner) processNextJob(ctx context.Context) bool {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return false
	}
	if len(jobs) == 0 {
		return false
	}

	job := jobs[0]
	log := logging.WithJob(r.logger, job.ID, job.Type)
	log.Info("processing job")

	handle, ok := r.handlers[job.Type]
	if !ok {
		log.Warn("unknown job type")
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "unknown job type")
		return true
	}

	switch err := handle(ctx, job); {
	case errors.Is(err, errMissingTarget):
		log.Warn("job target gone", "project_id", job.ProjectID, "video_id", job.VideoID)
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, err.Error())
	case err != nil:
		// Execute* already recorded the failure on the job row.
		log.Error("job failed", "error", err)
	}
	return true
}

func (r *Runner) runScan(ctx context.Context, job *Job) error {
	project, err := r.repo.GetProject(ctx, job.ProjectID)
	if err != nil || project == nil {
		return errMissingTarget
	}
	return r.service.ExecuteScan(ctx, job.ID, project)
}

func (r *Runner) runExtract(ctx context.Context, job *Job) error {
	video, err := r.repo.GetVideo(ctx, job.VideoID)
	if err != nil || video == nil {
		return errMissingTarget
	}
	return r.service.ExecuteExtract(ctx, job.ID, video)
}

func (r *Runner) runRender(ctx context.Context, job *Job) error {
	project, err := r.repo.GetProject(ctx, job.ProjectID)
	if err != nil || project == nil {
		return errMissingTarget
	}
	return r.service.ExecuteRender(ctx, job.ID, project)
}

// ActiveJob returns the running job, if any.
func (r *Runner) ActiveJob(ctx context.Context) *Job {
	jobs, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return nil
	}
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			return j
		}
	}
	return nil
}
