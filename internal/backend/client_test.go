package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_ListProjects(t *testing.T) {
	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]ProjectSummary{{Slug: "alps_2024", Name: "Alps 2024"}})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL + "/", Token: "tok", Logger: testLogger()})
	got, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(got) != 1 || got[0].Slug != "alps_2024" {
		t.Errorf("ListProjects() = %+v", got)
	}
	if receivedAuth != "Bearer tok" {
		t.Errorf("auth = %q", receivedAuth)
	}
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ProjectSummary{})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	if c.logger == nil {
		t.Fatal("logger should default when none is given")
	}
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
}

func TestClient_GetVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/alps_2024/video/010042" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"mp4_filename": "GX010042.MP4",
			"lrv_filename": "GL010042.LRV",
			"project_dir_name": "Alps 2024",
			"interest_levels": [{"timestamp": 0, "interest_level": 9.8}],
			"suggested_segments": [{"start_time": 1, "end_time": 3}]
		}`)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Logger: testLogger()})
	v, err := c.GetVideo(context.Background(), "alps_2024", "010042")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if v.MP4Filename != "GX010042.MP4" || v.ProjectDirName != "Alps 2024" {
		t.Errorf("GetVideo() = %+v", v)
	}
	if len(v.InterestLevels) != 1 || len(v.SuggestedSegments) != 1 {
		t.Errorf("levels=%d suggested=%d", len(v.InterestLevels), len(v.SuggestedSegments))
	}
}

func TestClient_SaveSegments(t *testing.T) {
	var received segments.Set
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/project/p/video/v/segments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(received)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Logger: testLogger()})
	stored, err := c.SaveSegments(context.Background(), "p", "v", segments.Set{{StartTime: 1, EndTime: 2}})
	if err != nil {
		t.Fatalf("SaveSegments() error = %v", err)
	}
	if len(received) != 1 || len(stored) != 1 {
		t.Errorf("received=%v stored=%v", received, stored)
	}

	if err := c.Persist(context.Background(), session.Key{Project: "p", Video: "v"}, nil); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if received == nil || len(received) != 0 {
		t.Errorf("nil set should be sent as [], got %v", received)
	}
}

func TestClient_APIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/project/missing":
			http.Error(w, `{"error":"project not found"}`, http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Logger: testLogger()})

	_, err := c.GetProject(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.IsRetryable() {
		t.Errorf("404 should be a permanent APIError, got %v", err)
	}

	_, err = c.ListProjects(context.Background())
	if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
		t.Errorf("502 should be retryable, got %v", err)
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("APIError{%d}.IsRetryable() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestClient_BreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Logger: testLogger()})
	for i := 0; i < tripAfterFailures; i++ {
		c.ListProjects(context.Background())
	}
	if c.State() != "open" {
		t.Fatalf("breaker state = %s, want open", c.State())
	}

	_, err := c.ListProjects(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if int(hits.Load()) != tripAfterFailures {
		t.Errorf("server hits = %d, want %d", hits.Load(), tripAfterFailures)
	}
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Logger: testLogger()})
	for i := 0; i < tripAfterFailures*2; i++ {
		c.GetProject(context.Background(), "nope")
	}
	if c.State() != "closed" {
		t.Errorf("breaker state = %s, want closed", c.State())
	}
}

func TestClient_Loader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/p" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(Project{
			Name: "P",
			Videos: []VideoSummary{
				{Slug: "v", Length: 42, Segments: segments.Set{{StartTime: 1, EndTime: 5}}},
			},
		})
	}))
	defer server.Close()

	load := New(Config{BaseURL: server.URL, Logger: testLogger()}).Loader()

	set, duration, err := load(context.Background(), session.Key{Project: "p", Video: "v"})
	if err != nil || duration != 42 || len(set) != 1 {
		t.Errorf("load = %v, %v, %v", set, duration, err)
	}
	if _, _, err := load(context.Background(), session.Key{Project: "p", Video: "x"}); !errors.Is(err, session.ErrUnknownVideo) {
		t.Errorf("unknown video error = %v", err)
	}
	if _, _, err := load(context.Background(), session.Key{Project: "q", Video: "v"}); !errors.Is(err, session.ErrUnknownVideo) {
		t.Errorf("unknown project error = %v", err)
	}
}
