package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/db"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/playback"
	"github.com/trailcut/trailcut/internal/session"
	"github.com/trailcut/trailcut/internal/telemetry"
)

const (
	testToken       = "test-token"
	testVideoLength = 60.0
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	series telemetry.Series
}

func (f *fakeExtractor) Extract(ctx context.Context, videoPath string) (telemetry.Series, error) {
	return f.series, nil
}

type fakeTool struct {
	frameRate float64
}

func (f *fakeTool) Inspect(ctx context.Context, path string) (*media.VideoInfo, error) {
	return &media.VideoInfo{Duration: testVideoLength, FrameRate: f.frameRate}, nil
}

func (f *fakeTool) Cut(ctx context.Context, input, output string, start, duration float64) error {
	return os.WriteFile(output, []byte("cut"), 0644)
}

func (f *fakeTool) Concat(ctx context.Context, inputs []string, output string) error {
	return os.WriteFile(output, []byte("joined"), 0644)
}

// spikeSeries is flat except for a jolt at t=10, which the scorer turns into
// the single suggestion [9, 12].
func spikeSeries() telemetry.Series {
	var accel, gyro []telemetry.Sample
	for i := 0; i <= 20; i++ {
		s := telemetry.Sample{T: float64(i), Z: 9.8}
		if i == 10 {
			s.X = 10
		}
		accel = append(accel, s)
		gyro = append(gyro, telemetry.Sample{T: float64(i)})
	}
	return telemetry.Series{Accel: accel, Gyro: gyro}
}

type testEnv struct {
	cfg     ServerConfig
	svc     *catalog.Service
	repo    catalog.Repository
	tool    *fakeTool
	handler http.Handler
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := catalog.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	tool := &fakeTool{frameRate: 25}
	loader := telemetry.NewLoader(&fakeExtractor{series: spikeSeries()}, testLogger())
	svc := catalog.NewService(repo, loader, tool, catalog.DefaultOptions(), testLogger())
	sessions := session.NewManager(session.ManagerConfig{
		Persister:      svc,
		Loader:         svc.SessionLoader(),
		MergeThreshold: svc.Options().MergeThreshold,
		Logger:         testLogger(),
	})
	t.Cleanup(func() { sessions.CloseAll(context.Background()) })

	cfg := ServerConfig{
		Catalog:        svc,
		Sessions:       sessions,
		PlaybackServer: playback.NewServer(testLogger()),
		Repository:     repo,
		Runner:         catalog.NewRunner(svc, repo, testLogger()),
		Media:          tool,
		Logger:         testLogger(),
		StartTime:      time.Now(),
		DeviceID:       "test-device",
		Version:        "test",
	}
	return &testEnv{
		cfg:     cfg,
		svc:     svc,
		repo:    repo,
		tool:    tool,
		handler: NewRouter(cfg),
		dir:     t.TempDir(),
	}
}

// addProject registers the env folder as project "Trip" holding the given
// files, scanned and with telemetry extracted for every video.
func (e *testEnv) addProject(t *testing.T, files ...string) {
	t.Helper()
	ctx := context.Background()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(e.dir, name), []byte("content of "+name), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	project, err := e.svc.AddProject(ctx, e.dir, "Trip")
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	job, err := e.svc.ScanProject(ctx, project.Slug)
	if err != nil {
		t.Fatalf("ScanProject() error = %v", err)
	}
	if err := e.svc.ExecuteScan(ctx, job.ID, project); err != nil {
		t.Fatalf("ExecuteScan() error = %v", err)
	}

	_, videos, err := e.svc.ProjectVideos(ctx, project.Slug)
	if err != nil {
		t.Fatalf("ProjectVideos() error = %v", err)
	}
	for _, v := range videos {
		now := time.Now()
		job := &catalog.Job{
			ID: catalog.NewID(), Type: catalog.JobTypeExtract, Status: catalog.JobStatusPending,
			ProjectID: project.ID, VideoID: v.Video.ID, CreatedAt: now, UpdatedAt: now,
		}
		if err := e.repo.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob() error = %v", err)
		}
		if err := e.svc.ExecuteExtract(ctx, job.ID, v.Video); err != nil {
			t.Fatalf("ExecuteExtract() error = %v", err)
		}
	}
}

// do sends a request through the router. A non-nil body is JSON encoded;
// authed adds the bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("json.Marshal error: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func newRangeRequest(path, rangeHeader string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Range", rangeHeader)
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}
