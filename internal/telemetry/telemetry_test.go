package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	series Series
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, videoPath string) (Series, error) {
	f.calls++
	return f.series, f.err
}

func TestSidecarPaths(t *testing.T) {
	gyro, accel := SidecarPaths("/media/trip/GX010042.MP4")
	if gyro != "/media/trip/GX010042.gyro.json" {
		t.Errorf("gyro = %q", gyro)
	}
	if accel != "/media/trip/GX010042.accel.json" {
		t.Errorf("accel = %q", accel)
	}
}

func TestSample_UnmarshalLegacyTimestamp(t *testing.T) {
	var samples []Sample
	data := `[{"t":1.5,"x":1,"y":2,"z":3},{"timestamp":2.5,"x":4,"y":5,"z":6},{"x":0,"y":0,"z":0}]`
	if err := json.Unmarshal([]byte(data), &samples); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if samples[0].T != 1.5 || samples[1].T != 2.5 {
		t.Errorf("timestamps = %v, %v", samples[0].T, samples[1].T)
	}
	if !math.IsNaN(samples[2].T) {
		t.Errorf("missing timestamp should decode as NaN, got %v", samples[2].T)
	}
}

func TestValidate(t *testing.T) {
	in := []Sample{
		{T: 2, X: 1},
		{T: 1, X: 2},
		{T: math.NaN()},
		{T: 3, Y: math.Inf(1)},
		{T: -1},
	}
	got, dropped := Validate(in)
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	if len(got) != 2 || got[0].T != 1 || got[1].T != 2 {
		t.Errorf("Validate() = %v", got)
	}
}

func TestLoader_ExtractsOnceThenUsesCache(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "GX010001.MP4")
	if err := os.WriteFile(video, []byte("not really a video"), 0644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeExtractor{series: Series{
		Gyro:  []Sample{{T: 0, X: 1}},
		Accel: []Sample{{T: 0.5, Z: 9.8}, {T: 0, Z: 9.7}},
	}}
	loader := NewLoader(fake, testLogger())

	first := loader.Load(context.Background(), video)
	if len(first.Accel) != 2 || first.Accel[0].T != 0 {
		t.Fatalf("first load accel = %v", first.Accel)
	}
	if !Cached(video) {
		t.Fatal("sidecars should exist after extraction")
	}

	second := loader.Load(context.Background(), video)
	if fake.calls != 1 {
		t.Errorf("extractor calls = %d, want 1", fake.calls)
	}
	if len(second.Gyro) != 1 || len(second.Accel) != 2 {
		t.Errorf("cached load = %+v", second)
	}
}

func TestLoader_ExtractionFailureDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "GX010002.MP4")

	fake := &fakeExtractor{err: errors.New("no GPMF track")}
	loader := NewLoader(fake, testLogger())

	series := loader.Load(context.Background(), video)
	if !series.Empty() {
		t.Errorf("expected empty series, got %+v", series)
	}
	if Cached(video) {
		t.Error("failed extraction must not be cached")
	}
}

func TestLoader_EmptyFileMeansNotExtracted(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "GX010003.MP4")
	gyro, accel := SidecarPaths(video)
	os.WriteFile(gyro, nil, 0644)
	os.WriteFile(accel, nil, 0644)

	fake := &fakeExtractor{series: Series{Accel: []Sample{{T: 1}}}}
	NewLoader(fake, testLogger()).Load(context.Background(), video)

	if fake.calls != 1 {
		t.Errorf("extractor calls = %d, want 1 for empty sidecars", fake.calls)
	}
}

func TestTailWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	tw := &tailWriter{w: &buf, limit: 10}

	tw.Write([]byte("hello"))
	tw.Write([]byte(" world of test data"))

	if got := buf.String(); got != " test data" {
		t.Errorf("tail = %q, want %q", got, " test data")
	}
}

func TestNewCommandExtractor_MissingCommand(t *testing.T) {
	if _, err := NewCommandExtractor(ExtractorConfig{Logger: testLogger()}); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommandExtractor(ExtractorConfig{Command: "definitely-not-a-real-binary-xyz", Logger: testLogger()}); err == nil {
		t.Error("expected error for unknown command")
	}
}
