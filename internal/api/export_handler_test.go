package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exportpkg "github.com/trailcut/trailcut/internal/export"
)

const exportPath = "/project/trip/export"

func TestExport_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4", "GX010043.MP4")
	outDir := t.TempDir()

	rr := env.do(t, http.MethodPost, exportPath, exportpkg.ExportRequest{Format: "edl", OutputDir: outDir}, true)
	expectStatus(t, rr, http.StatusOK)

	var resp exportpkg.ExportResponse
	decodeInto(t, rr, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.ClipCount)
	assert.Equal(t, 25.0, resp.FrameRate, "frame rate should come from the footage")
	assert.Empty(t, resp.SkippedVideos)
	assert.Equal(t, filepath.Join(outDir, "Trip.edl"), resp.OutputPath)

	data, err := os.ReadFile(resp.OutputPath)
	require.NoError(t, err)
	edl := string(data)
	assert.Contains(t, edl, "TITLE: Trip")
	assert.Contains(t, edl, "* SOURCE FILE:  GX010042.MP4")
	assert.Contains(t, edl, "* SOURCE FILE:  GX010043.MP4")
	assert.Contains(t, edl, "001  GX010042 V     C        00:00:09:00 00:00:12:00 00:00:00:00 00:00:03:00")
	assert.Contains(t, edl, "002  GX010043 V     C        00:00:09:00 00:00:12:00 00:00:03:00 00:00:06:00")
}

func TestExport_SelectedVideos(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4", "GX010043.MP4")

	rr := env.do(t, http.MethodPost, exportPath, exportpkg.ExportRequest{
		OutputDir: t.TempDir(),
		FrameRate: 30,
		Videos:    []string{"010043", "999999"},
	}, true)
	expectStatus(t, rr, http.StatusOK)

	var resp exportpkg.ExportResponse
	decodeInto(t, rr, &resp)
	assert.Equal(t, 1, resp.ClipCount)
	assert.Equal(t, 30.0, resp.FrameRate)
	assert.Equal(t, []string{"999999"}, resp.SkippedVideos)
}

func TestExport_NothingToExport(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4")

	rr := env.do(t, http.MethodPost, "/project/trip/video/010042/segments", "[]", true)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, exportPath, exportpkg.ExportRequest{OutputDir: t.TempDir()}, true)
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	assert.Equal(t, "NOTHING_TO_EXPORT", decodeJSONBody(t, rr)["code"])
}

func TestExport_Rejects(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4")
	outDir := t.TempDir()

	tests := []struct {
		name string
		path string
		req  exportpkg.ExportRequest
		want int
	}{
		{"invalid format", exportPath, exportpkg.ExportRequest{Format: "xml", OutputDir: outDir}, http.StatusBadRequest},
		{"missing output dir", exportPath, exportpkg.ExportRequest{}, http.StatusBadRequest},
		{"output dir does not exist", exportPath, exportpkg.ExportRequest{OutputDir: filepath.Join(outDir, "nope")}, http.StatusBadRequest},
		{"path traversal", exportPath, exportpkg.ExportRequest{OutputDir: outDir + "/../x"}, http.StatusBadRequest},
		{"frame rate out of range", exportPath, exportpkg.ExportRequest{OutputDir: outDir, FrameRate: 1000}, http.StatusBadRequest},
		{"unknown project", "/project/nope/export", exportpkg.ExportRequest{OutputDir: outDir}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, tt.path, tt.req, true)
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestExport_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4")

	rr := env.do(t, http.MethodPost, exportPath, exportpkg.ExportRequest{OutputDir: t.TempDir()}, false)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestSelectVideos_KeepsOrderAndReportsUnknown(t *testing.T) {
	env := newTestEnv(t)
	env.addProject(t, "GX010042.MP4", "GX010043.MP4", "GX010044.MP4")
	_, videos, err := env.svc.ProjectVideos(t.Context(), "trip")
	require.NoError(t, err)

	selected, skipped := selectVideos(videos, []string{"010044", " 010042", "nope", "nope"})
	slugs := make([]string, len(selected))
	for i, v := range selected {
		slugs[i] = v.Video.Slug
	}
	assert.Equal(t, "010042,010044", strings.Join(slugs, ","))
	assert.Equal(t, []string{"nope"}, skipped)
}
