package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trailcut/trailcut/internal/media"
)

func setupRunnerTest(t *testing.T) (*Runner, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewRunner(env.svc, env.repo, testLogger()), env
}

// drain runs pending jobs until none are left.
func drain(t *testing.T, r *Runner) int {
	t.Helper()
	n := 0
	for r.processNextJob(context.Background()) {
		n++
		if n > 100 {
			t.Fatal("job queue did not drain")
		}
	}
	return n
}

func TestRunner_ScanThenExtract(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, "GX010042.MP4", "GX010043.MP4")

	project, err := env.svc.AddProject(ctx, dir, "Trip")
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	if _, err := env.svc.ScanProject(ctx, project.Slug); err != nil {
		t.Fatalf("ScanProject() error = %v", err)
	}

	if n := drain(t, runner); n != 3 {
		t.Errorf("processed %d jobs, want 3 (scan + 2 extracts)", n)
	}
	if env.extractor.calls != 2 {
		t.Errorf("extractor calls = %d, want 2", env.extractor.calls)
	}

	jobs, _ := env.repo.ListJobs(ctx, 10)
	for _, j := range jobs {
		if j.Status != JobStatusCompleted {
			t.Errorf("job %s (%s) status = %s", j.ID, j.Type, j.Status)
		}
	}

	set, _, _ := env.svc.Segments(ctx, "trip", "010043")
	if len(set) != 1 {
		t.Errorf("seeded set = %+v", set)
	}
}

func TestRunner_Render(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, "GX010042.MP4")
	env.scannedProject(t, dir, "Trip")
	drain(t, runner)

	job, err := env.svc.QueueRender(ctx, "trip")
	if err != nil {
		t.Fatalf("QueueRender() error = %v", err)
	}
	drain(t, runner)

	done, _ := env.repo.GetJob(ctx, job.ID)
	if done.Status != JobStatusCompleted {
		t.Errorf("render status = %s (%s)", done.Status, done.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "segments", "GX010042_segment_9_12.MP4")); err != nil {
		t.Errorf("cut missing: %v", err)
	}
}

func TestRunner_RenderFinalCut(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, "GX010042.MP4")
	env.scannedProject(t, dir, "Trip")
	drain(t, runner)

	env.svc.opts.Finish = media.Finish{Fade: 0.25, Title: "Trip", Subtitle: "Spring"}
	job, err := env.svc.QueueRender(ctx, "trip")
	if err != nil {
		t.Fatalf("QueueRender() error = %v", err)
	}
	drain(t, runner)

	done, _ := env.repo.GetJob(ctx, job.ID)
	if done.Status != JobStatusCompleted {
		t.Fatalf("render status = %s (%s)", done.Status, done.Error)
	}
	if len(env.tool.fades) != 1 || env.tool.fades[0] != "GX010042_segment_9_12_faded.MP4" {
		t.Errorf("fades = %v", env.tool.fades)
	}
	if len(env.tool.cards) != 1 || env.tool.cards[0].Title != "Trip" || env.tool.cards[0].Subtitle != "Spring" {
		t.Errorf("cards = %+v", env.tool.cards)
	}
	if _, err := os.Stat(filepath.Join(dir, "segments", media.FinalCutFilename)); err != nil {
		t.Errorf("final cut missing: %v", err)
	}
}

func TestRunner_MissingTargetsFailJobs(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	now := time.Now()

	jobs := []*Job{
		{ID: NewID(), Type: JobTypeScan, Status: JobStatusPending, ProjectID: "gone", CreatedAt: now, UpdatedAt: now},
		{ID: NewID(), Type: JobTypeExtract, Status: JobStatusPending, VideoID: "gone", CreatedAt: now, UpdatedAt: now},
		{ID: NewID(), Type: JobTypeRender, Status: JobStatusPending, ProjectID: "gone", CreatedAt: now, UpdatedAt: now},
		{ID: NewID(), Type: "transcode", Status: JobStatusPending, CreatedAt: now, UpdatedAt: now},
	}
	for _, j := range jobs {
		if err := env.repo.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob() error = %v", err)
		}
	}

	if n := drain(t, runner); n != len(jobs) {
		t.Errorf("processed %d jobs, want %d", n, len(jobs))
	}
	for _, j := range jobs {
		got, _ := env.repo.GetJob(ctx, j.ID)
		if got.Status != JobStatusFailed || got.Error == "" {
			t.Errorf("job %s = %s %q, want failed with a reason", j.Type, got.Status, got.Error)
		}
	}
}

func TestRunner_PauseResume(t *testing.T) {
	runner, _ := setupRunnerTest(t)

	if runner.IsPaused() {
		t.Error("new runner should not be paused")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("runner should be paused")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("runner should be resumed")
	}
}

func TestRunner_StartStops(t *testing.T) {
	runner, _ := setupRunnerTest(t)
	runner.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !runner.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !runner.IsRunning() {
		t.Fatal("runner did not start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	if runner.IsRunning() {
		t.Error("runner still reports running")
	}
}

func TestRunner_ActiveJob(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	if runner.ActiveJob(ctx) != nil {
		t.Error("no job should be active")
	}

	now := time.Now()
	job := &Job{ID: NewID(), Type: JobTypeScan, Status: JobStatusRunning, CreatedAt: now, UpdatedAt: now}
	env.repo.CreateJob(ctx, job)

	if active := runner.ActiveJob(ctx); active == nil || active.ID != job.ID {
		t.Errorf("ActiveJob() = %+v", active)
	}
}

func TestRunner_DrainStopsWhenPaused(t *testing.T) {
	runner, env := setupRunnerTest(t)
	ctx := context.Background()
	for _, name := range []string{"Alps", "Coast"} {
		project, err := env.svc.AddProject(ctx, t.TempDir(), name)
		if err != nil {
			t.Fatalf("AddProject() error = %v", err)
		}
		env.svc.ScanProject(ctx, project.Slug)
	}

	runner.Pause()
	runner.drain(ctx)
	if pending, _ := env.repo.ListPendingJobs(ctx); len(pending) != 2 {
		t.Fatalf("paused runner processed jobs, %d pending", len(pending))
	}

	runner.Resume()
	runner.drain(ctx)
	if pending, _ := env.repo.ListPendingJobs(ctx); len(pending) != 0 {
		t.Errorf("drain left %d jobs pending", len(pending))
	}
}

func TestRunner_QueuedJobWakesRunner(t *testing.T) {
	runner, env := setupRunnerTest(t)
	runner.pollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	dir := t.TempDir()
	writeFiles(t, dir, "GX010042.MP4")
	project, err := env.svc.AddProject(ctx, dir, "Trip")
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	job, err := env.svc.ScanProject(ctx, project.Slug)
	if err != nil {
		t.Fatalf("ScanProject() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := env.repo.GetJob(ctx, job.ID); got != nil && got.Status == JobStatusCompleted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("queued scan was not picked up before the next poll")
}
