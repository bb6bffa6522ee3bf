// Package backend is a client for a remote Trailcut server's REST surface.
// Calls go through a circuit breaker so an unreachable backend fails fast
// instead of stalling every segment save.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
)

const (
	defaultTimeout     = 30 * time.Second
	maxResponseBytes   = 16 << 20
	maxErrorBodyBytes  = 4096
	tripAfterFailures  = 5
	breakerOpenTimeout = 30 * time.Second
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors (4xx) are permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to one backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "backend")

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "trailcut-backend",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfterFailures
		},
		// Permanent client errors mean the backend answered; they do not count
		// against its health.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsRetryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb:         cb,
		logger:     logger,
	}
}

// State is the breaker state: "closed", "half-open" or "open".
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	var out []ProjectSummary
	if err := c.getJSON(ctx, "/projects", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, projectSlug string) (*Project, error) {
	var out Project
	if err := c.getJSON(ctx, "/project/"+url.PathEscape(projectSlug), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVideos(ctx context.Context, projectSlug string) ([]VideoSummary, error) {
	var out []VideoSummary
	if err := c.getJSON(ctx, "/project/"+url.PathEscape(projectSlug)+"/videos", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetVideo(ctx context.Context, projectSlug, videoSlug string) (*VideoDetail, error) {
	var out VideoDetail
	if err := c.getJSON(ctx, videoPath(projectSlug, videoSlug), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveSegments replaces the video's segment set and returns what the backend
// stored.
func (c *Client) SaveSegments(ctx context.Context, projectSlug, videoSlug string, set segments.Set) (segments.Set, error) {
	if set == nil {
		set = segments.Set{}
	}
	body, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, videoPath(projectSlug, videoSlug)+"/segments", body)
	if err != nil {
		return nil, err
	}

	var stored segments.Set
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("decode saved segments: %w", err)
		}
	}
	return stored, nil
}

// Persist lets an editing session save straight to the backend.
func (c *Client) Persist(ctx context.Context, key session.Key, set segments.Set) error {
	_, err := c.SaveSegments(ctx, key.Project, key.Video, set)
	return err
}

// Loader opens editing sessions from the backend's copy of a video.
func (c *Client) Loader() session.Loader {
	return func(ctx context.Context, key session.Key) (segments.Set, float64, error) {
		project, err := c.GetProject(ctx, key.Project)
		if err != nil {
			if IsNotFound(err) {
				return nil, 0, session.ErrUnknownVideo
			}
			return nil, 0, err
		}
		for _, v := range project.Videos {
			if v.Slug == key.Video {
				return v.Segments, v.Length, nil
			}
		}
		return nil, 0, session.ErrUnknownVideo
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, body)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn("backend request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func videoPath(projectSlug, videoSlug string) string {
	return "/project/" + url.PathEscape(projectSlug) + "/video/" + url.PathEscape(videoSlug)
}
