package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trailcut/trailcut/internal/logging"
	"github.com/trailcut/trailcut/internal/segments"
)

// Loader supplies the stored segments and duration of a video when its
// session is first opened. It returns ErrUnknownVideo for a missing video.
type Loader func(ctx context.Context, key Key) (set segments.Set, duration float64, err error)

type ManagerConfig struct {
	Persister      Persister
	Loader         Loader
	MergeThreshold float64
	HitTolerance   float64
	SaveTimeout    time.Duration
	Logger         *slog.Logger
}

// Manager keeps at most one live session per video.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[Key]*Session
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg, sessions: make(map[Key]*Session)}
}

// Get returns the live session for key, opening it from the loader if
// needed. The loader runs without the manager lock; when two callers race to
// open the same video the first one stored wins and the other is closed.
func (m *Manager) Get(ctx context.Context, key Key) (*Session, error) {
	if s := m.Peek(key); s != nil {
		return s, nil
	}

	set, duration, err := m.cfg.Loader(ctx, key)
	if err != nil {
		return nil, err
	}
	s := New(key, set, m.cfg.Persister, Options{
		Duration:       duration,
		MergeThreshold: m.cfg.MergeThreshold,
		HitTolerance:   m.cfg.HitTolerance,
		SaveTimeout:    m.cfg.SaveTimeout,
		OnSaveError:    m.onSaveError,
		Logger:         logging.WithSession(m.cfg.Logger, key.Project, key.Video),
	})

	m.mu.Lock()
	existing, ok := m.sessions[key]
	if !ok {
		m.sessions[key] = s
	}
	m.mu.Unlock()

	if ok {
		s.Close(ctx)
		return existing, nil
	}
	return s, nil
}

// Peek returns the live session for key without opening one.
func (m *Manager) Peek(key Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key]
}

// Drop flushes and forgets the session for key, so the next Get reloads from
// storage. Used when the set is replaced outside the session.
func (m *Manager) Drop(ctx context.Context, key Key) error {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// DropProject drops every session belonging to project.
func (m *Manager) DropProject(ctx context.Context, project string) error {
	m.mu.Lock()
	var victims []*Session
	for key, s := range m.sessions {
		if key.Project == project {
			victims = append(victims, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range victims {
		errs = append(errs, s.Close(ctx))
	}
	return errors.Join(errs...)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll flushes every session. Called on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for key, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range all {
		errs = append(errs, s.Close(ctx))
	}
	return errors.Join(errs...)
}

func (m *Manager) onSaveError(key Key, err error) {
	m.cfg.Logger.Error("session save failed",
		"project_slug", key.Project,
		"video_slug", key.Video,
		"error", err,
	)
}
