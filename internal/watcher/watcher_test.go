package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path  string
	event EventType
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
	signal chan struct{}
}

func (r *recorder) record(path string, event EventType) {
	r.mu.Lock()
	r.events = append(r.events, recorded{path, event})
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

// wait blocks until at least n events arrived.
func (r *recorder) wait(t *testing.T, n int) []recorded {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if got := r.all(); len(got) >= n {
			return got
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %v", n, r.all())
		}
	}
}

const testDebounce = 100 * time.Millisecond

func newTestWatcher(t *testing.T, paths ...string) (*FolderWatcher, *recorder) {
	t.Helper()
	w, err := New(Config{
		Source:        func(ctx context.Context) ([]string, error) { return paths, nil },
		Filter:        func(name string) bool { return strings.HasSuffix(strings.ToLower(name), ".mp4") },
		Debounce:      testDebounce,
		CheckInterval: time.Hour,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	rec := &recorder{signal: make(chan struct{}, 1)}
	w.OnChange(rec.record)
	return w, rec
}

// run starts w after its folders are watched and stops it with the test.
func run(t *testing.T, w *FolderWatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w.refresh(ctx)
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// discard empties the fsnotify channels for tests that drive refresh by hand.
func discard(w *FolderWatcher) {
	go func() {
		for range w.fsw.Events {
		}
	}()
	go func() {
		for range w.fsw.Errors {
		}
	}()
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFolderWatcher_FirstCheckIsBaseline(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "GX010042.MP4"), "a")
	w, rec := newTestWatcher(t, dir, filepath.Join(dir, "missing"))
	defer w.close()
	discard(w)

	w.refresh(context.Background())
	w.refresh(context.Background())

	assert.Empty(t, rec.all())
}

func TestFolderWatcher_DebouncesNewRecordings(t *testing.T) {
	dir := t.TempDir()
	w, rec := newTestWatcher(t, dir)
	run(t, w)

	write(t, filepath.Join(dir, "GX010042.MP4"), "a")
	write(t, filepath.Join(dir, "GX010043.MP4"), "b")
	write(t, filepath.Join(dir, "GX010042.MP4"), "aa")

	assert.Equal(t, []recorded{{dir, EventModify}}, rec.wait(t, 1))
	time.Sleep(4 * testDebounce)
	assert.Len(t, rec.all(), 1, "one burst is one modify")
}

func TestFolderWatcher_IgnoresFilteredFiles(t *testing.T) {
	dir := t.TempDir()
	w, rec := newTestWatcher(t, dir)
	run(t, w)

	write(t, filepath.Join(dir, "GX010042.segments.json"), "{}")
	write(t, filepath.Join(dir, ".GX010042.MP4"), "hidden")
	write(t, filepath.Join(dir, "GX010042.MP4.part"), "partial")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "segments"), 0755))
	write(t, filepath.Join(dir, "segments", "GX010042_segment_1_4.MP4"), "cut")
	time.Sleep(4 * testDebounce)
	assert.Empty(t, rec.all())

	write(t, filepath.Join(dir, "GX010044.MP4"), "c")
	assert.Equal(t, []recorded{{dir, EventModify}}, rec.wait(t, 1))
}

func TestFolderWatcher_FolderGoesAndReturns(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "card")
	require.NoError(t, os.Mkdir(dir, 0755))
	w, rec := newTestWatcher(t, dir)
	defer w.close()
	discard(w)
	w.refresh(context.Background())

	require.NoError(t, os.Rename(dir, dir+".away"))
	w.refresh(context.Background())
	require.NoError(t, os.Rename(dir+".away", dir))
	w.refresh(context.Background())

	assert.Equal(t, []recorded{{dir, EventDelete}, {dir, EventCreate}}, rec.all())
}

func TestFolderWatcher_RemovedFolderReportsDelete(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "card")
	require.NoError(t, os.Mkdir(dir, 0755))
	w, rec := newTestWatcher(t, dir)
	run(t, w)

	require.NoError(t, os.Remove(dir))

	assert.Equal(t, []recorded{{dir, EventDelete}}, rec.wait(t, 1))
	w.refresh(context.Background())
	assert.Len(t, rec.all(), 1, "the next check does not repeat the delete")
}

func TestFolderWatcher_StartStops(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "modify", EventModify.String())
	assert.Equal(t, "delete", EventDelete.String())
}
