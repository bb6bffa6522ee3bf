// Package watcher follows project folders and reports when their recordings
// change or the folder (usually a card or external drive) comes and goes.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce      = 2 * time.Second
	DefaultCheckInterval = 30 * time.Second
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type Watcher interface {
	Start(ctx context.Context)
	OnChange(callback func(path string, event EventType))
}

// PathSource lists the folders to watch. It is asked again on every check,
// so folders added or removed elsewhere are picked up without registration.
type PathSource func(ctx context.Context) ([]string, error)

type Config struct {
	Source PathSource
	// Filter selects the file names that count towards a folder's contents.
	// Nil counts every file.
	Filter func(name string) bool
	// Debounce folds a burst of file events in one folder into one modify.
	Debounce time.Duration
	// CheckInterval is how often the folder list is re-read and every folder
	// is checked for existence. Unplugged drives do not always raise events.
	CheckInterval time.Duration
	Logger        *slog.Logger
}

// FolderWatcher is a Watcher on top of fsnotify. Each folder is watched
// non-recursively; rendered output in subfolders is ignored. The first
// sighting of a folder only records whether it exists.
type FolderWatcher struct {
	cfg Config
	fsw *fsnotify.Watcher

	mu       sync.Mutex
	present  map[string]bool
	debounce map[string]*time.Timer
	closed   bool
	callback func(path string, event EventType)
}

func New(cfg Config) (*FolderWatcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FolderWatcher{
		cfg:      cfg,
		fsw:      fsw,
		present:  make(map[string]bool),
		debounce: make(map[string]*time.Timer),
	}, nil
}

func (w *FolderWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Start watches until ctx is done, then releases the fsnotify watcher.
func (w *FolderWatcher) Start(ctx context.Context) {
	w.cfg.Logger.Info("folder watcher started",
		"debounce", w.cfg.Debounce.String(),
		"check_interval", w.cfg.CheckInterval.String(),
	)

	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()
	defer w.close()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.cfg.Logger.Info("folder watcher stopping")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.cfg.Logger.Warn("folder watcher error", "error", err)
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *FolderWatcher) close() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.debounce {
		t.Stop()
		delete(w.debounce, path)
	}
	w.mu.Unlock()
	w.fsw.Close()
}

type change struct {
	path  string
	event EventType
}

// refresh syncs the watch list with the source and reports folders that
// disappeared or came back since the last check.
func (w *FolderWatcher) refresh(ctx context.Context) {
	paths, err := w.cfg.Source(ctx)
	if err != nil {
		w.cfg.Logger.Warn("failed to list watched folders", "error", err)
		return
	}

	var changes []change

	w.mu.Lock()
	desired := make(map[string]bool, len(paths))
	for _, path := range paths {
		desired[path] = true
		exists := isDir(path)
		prev, known := w.present[path]
		w.present[path] = exists

		switch {
		case !known:
			if exists {
				w.addLocked(path)
			}
		case prev && !exists:
			w.dropLocked(path)
			changes = append(changes, change{path, EventDelete})
		case !prev && exists:
			w.addLocked(path)
			changes = append(changes, change{path, EventCreate})
		}
	}
	for path := range w.present {
		if !desired[path] {
			w.dropLocked(path)
			delete(w.present, path)
		}
	}
	callback := w.callback
	w.mu.Unlock()

	w.emit(callback, changes...)
}

func (w *FolderWatcher) handleEvent(event fsnotify.Event) {
	w.mu.Lock()
	if w.present[event.Name] && event.Has(fsnotify.Remove|fsnotify.Rename) {
		// The folder itself went away.
		w.present[event.Name] = false
		w.dropLocked(event.Name)
		callback := w.callback
		w.mu.Unlock()
		w.emit(callback, change{event.Name, EventDelete})
		return
	}
	w.mu.Unlock()

	if !event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part") {
		return
	}
	if w.cfg.Filter != nil && !w.cfg.Filter(base) {
		return
	}

	folder := filepath.Dir(event.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.present[folder] || w.closed {
		return
	}
	if t, ok := w.debounce[folder]; ok {
		t.Stop()
	}
	w.debounce[folder] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, folder)
		closed, callback := w.closed, w.callback
		w.mu.Unlock()
		if !closed {
			w.emit(callback, change{folder, EventModify})
		}
	})
}

func (w *FolderWatcher) emit(callback func(string, EventType), changes ...change) {
	for _, c := range changes {
		w.cfg.Logger.Info("folder changed", "path", c.path, "event", c.event.String())
		if callback != nil {
			callback(c.path, c.event)
		}
	}
}

// addLocked must be called with mu held.
func (w *FolderWatcher) addLocked(path string) {
	if err := w.fsw.Add(path); err != nil {
		w.cfg.Logger.Warn("failed to watch folder", "path", path, "error", err)
	}
}

// dropLocked must be called with mu held. The watch may already be gone
// along with the folder.
func (w *FolderWatcher) dropLocked(path string) {
	w.fsw.Remove(path)
	if t, ok := w.debounce[path]; ok {
		t.Stop()
		delete(w.debounce, path)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
