package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailcut/trailcut/internal/backend"
	"github.com/trailcut/trailcut/internal/segments"
	"github.com/trailcut/trailcut/internal/session"
)

// The backend client and this router are two ends of the same surface.
func TestBackendClientAgainstRouter(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4", "GL010042.LRV")

	server := httptest.NewServer(env.handler)
	defer server.Close()

	client := backend.New(backend.Config{BaseURL: server.URL, Token: testToken, Logger: testLogger()})
	ctx := context.Background()

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []backend.ProjectSummary{{Slug: "trip", Name: "Trip"}}, projects)

	project, err := client.GetProject(ctx, "trip")
	require.NoError(t, err)
	require.Len(t, project.Videos, 1)
	assert.Equal(t, testVideoLength, project.Videos[0].Length)

	videos, err := client.ListVideos(ctx, "trip")
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	detail, err := client.GetVideo(ctx, "trip", "010042")
	require.NoError(t, err)
	assert.Equal(t, "GL010042.LRV", detail.LRVFilename)
	assert.Equal(t, [][2]float64{{9, 12}}, bounds(detail.SuggestedSegments))

	stored, err := client.SaveSegments(ctx, "trip", "010042", segments.Set{
		{StartTime: 30, EndTime: 32},
		{StartTime: 32.5, EndTime: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{30, 40}}, bounds(stored))

	set, duration, err := client.Loader()(ctx, session.Key{Project: "trip", Video: "010042"})
	require.NoError(t, err)
	assert.Equal(t, testVideoLength, duration)
	assert.Equal(t, bounds(stored), bounds(set))

	_, _, err = client.Loader()(ctx, session.Key{Project: "nope", Video: "010042"})
	assert.True(t, errors.Is(err, session.ErrUnknownVideo), "err = %v", err)

	_, err = client.GetVideo(ctx, "trip", "999999")
	assert.True(t, backend.IsNotFound(err), "err = %v", err)
}

func TestBackendClient_WrongTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4")

	server := httptest.NewServer(env.handler)
	defer server.Close()

	client := backend.New(backend.Config{BaseURL: server.URL, Token: "wrong", Logger: testLogger()})
	_, err := client.SaveSegments(context.Background(), "trip", "010042", segments.Set{})

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr), "err = %v", err)
	assert.Equal(t, 401, apiErr.StatusCode)
}
