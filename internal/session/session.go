// Package session is the editing controller for one video's segments. It
// turns clicks and pointer drags over the chart into segment-set mutations
// and persists every change in order without blocking the caller.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/trailcut/trailcut/internal/segments"
)

const (
	DefaultHitTolerance = 6.0
	MinSegmentWidth     = 0.1
)

var (
	ErrDragging     = errors.New("segment is being dragged")
	ErrUnknownVideo = errors.New("unknown video")
)

// Key identifies the video a session edits.
type Key struct {
	Project string `json:"project"`
	Video   string `json:"video"`
}

// Persister stores a full replacement of a video's segment set.
type Persister interface {
	Persist(ctx context.Context, key Key, set segments.Set) error
}

type PersisterFunc func(ctx context.Context, key Key, set segments.Set) error

func (f PersisterFunc) Persist(ctx context.Context, key Key, set segments.Set) error {
	return f(ctx, key, set)
}

type Mode int

const (
	Idle Mode = iota
	Drafting
	Dragging
)

func (m Mode) String() string {
	switch m {
	case Drafting:
		return "drafting"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeEnd {
		return "end"
	}
	return "start"
}

func (e Edge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// State is the controller state. DraftStart is meaningful while Drafting,
// Index and Edge while Dragging.
type State struct {
	Mode       Mode    `json:"mode"`
	DraftStart float64 `json:"draft_start"`
	Index      int     `json:"index"`
	Edge       Edge    `json:"edge"`
}

// Snapshot is what callers see after an interaction.
type Snapshot struct {
	State     State        `json:"state"`
	Segments  segments.Set `json:"segments"`
	SaveError string       `json:"save_error,omitempty"`
}

type Options struct {
	Duration       float64
	MergeThreshold float64
	HitTolerance   float64
	SaveTimeout    time.Duration
	// OnSaveError is called from the save goroutine after a failed save.
	OnSaveError func(Key, error)
	Logger      *slog.Logger
}

// Session owns one video's segment set. All methods are safe for concurrent
// use; mutations apply in call order and are persisted in the same order.
type Session struct {
	key       Key
	duration  float64
	threshold float64
	tolerance float64
	logger    *slog.Logger

	mu    sync.Mutex
	set   segments.Set
	state State

	saves *saveQueue
}

func New(key Key, initial segments.Set, persister Persister, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HitTolerance <= 0 {
		opts.HitTolerance = DefaultHitTolerance
	}
	if opts.MergeThreshold < 0 {
		opts.MergeThreshold = 0
	}

	initial = segments.EnsureIDs(initial, segments.SourceUser)
	return &Session{
		key:       key,
		duration:  opts.Duration,
		threshold: opts.MergeThreshold,
		tolerance: opts.HitTolerance,
		logger:    opts.Logger,
		set:       segments.Canonicalize(initial, opts.MergeThreshold),
		saves:     newSaveQueue(key, persister, opts.SaveTimeout, opts.OnSaveError, opts.Logger),
	}
}

func (s *Session) Key() Key {
	return s.key
}

// Duration is the length of the video being edited, in seconds.
func (s *Session) Duration() float64 {
	return s.duration
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Click handles one click at time t. The first click starts a draft, the
// second inserts the drafted segment. Clicks during a drag are ignored.
func (s *Session) Click(t float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = s.clampTime(t)
	switch s.state.Mode {
	case Idle:
		s.state = State{Mode: Drafting, DraftStart: t}
	case Drafting:
		seg := segments.New(s.state.DraftStart, t, segments.SourceUser)
		s.state = State{Mode: Idle}
		s.apply(segments.Normalize(s.set, seg, s.threshold))
	}
	return s.snapshotLocked()
}

// CancelDraft drops a pending first click.
func (s *Session) CancelDraft() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Mode == Drafting {
		s.state = State{Mode: Idle}
	}
	return s.snapshotLocked()
}

// PointerDown starts a drag when x is within the hit tolerance of a segment
// edge. The nearest edge wins. It reports whether a drag started.
func (s *Session) PointerDown(x float64, scale Scale) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Mode != Idle {
		return s.snapshotLocked(), false
	}

	best, bestEdge, bestDist := -1, EdgeStart, math.Inf(1)
	for i, seg := range s.set {
		if d := math.Abs(scale.TimeToPixel(seg.StartTime) - x); d <= s.tolerance && d < bestDist {
			best, bestEdge, bestDist = i, EdgeStart, d
		}
		if d := math.Abs(scale.TimeToPixel(seg.EndTime) - x); d <= s.tolerance && d < bestDist {
			best, bestEdge, bestDist = i, EdgeEnd, d
		}
	}
	if best < 0 {
		return s.snapshotLocked(), false
	}

	s.state = State{Mode: Dragging, Index: best, Edge: bestEdge}
	return s.snapshotLocked(), true
}

// PointerMove moves the dragged edge to x. The edge is kept at least
// MinSegmentWidth away from the opposite edge and inside the video.
func (s *Session) PointerMove(x float64, scale Scale) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Mode != Dragging || s.state.Index >= len(s.set) {
		return s.snapshotLocked()
	}

	t := s.clampTime(scale.PixelToTime(x))
	moved := dragEdge(s.set[s.state.Index], s.state.Edge, t, s.duration)

	next := segments.Normalize(segments.Remove(s.set, s.state.Index), moved, s.threshold)
	s.state.Index = retarget(next, moved, s.state.Index)
	s.apply(next)
	return s.snapshotLocked()
}

func (s *Session) PointerUp() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Mode == Dragging {
		s.state = State{Mode: Idle}
	}
	return s.snapshotLocked()
}

// Delete removes the segment at index. It is refused while dragging; an
// out-of-range index changes nothing.
func (s *Session) Delete(index int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Mode == Dragging {
		return s.snapshotLocked(), ErrDragging
	}
	if index < 0 || index >= len(s.set) {
		return s.snapshotLocked(), nil
	}
	s.apply(segments.Remove(s.set, index))
	return s.snapshotLocked(), nil
}

// Replace swaps in a new set, for example scorer suggestions. It is refused
// while dragging.
func (s *Session) Replace(set segments.Set) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Mode == Dragging {
		return s.snapshotLocked(), ErrDragging
	}
	set = segments.EnsureIDs(set, segments.SourceUser)
	s.apply(segments.Canonicalize(set, s.threshold))
	return s.snapshotLocked(), nil
}

// LastSaveError is the error from the most recent save, nil once a later
// save succeeds.
func (s *Session) LastSaveError() error {
	return s.saves.lastError()
}

// Flush waits for every change made so far to be persisted or to fail.
func (s *Session) Flush(ctx context.Context) error {
	return s.saves.flush(ctx)
}

// Close writes any pending change and stops the save goroutine.
func (s *Session) Close(ctx context.Context) error {
	return s.saves.close(ctx)
}

// apply must be called with mu held.
func (s *Session) apply(next segments.Set) {
	s.set = next
	if !s.saves.enqueue(segments.Clone(next)) {
		s.logger.Warn("session closed, change not persisted",
			"project_slug", s.key.Project,
			"video_slug", s.key.Video,
		)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Segments: segments.Clone(s.set),
	}
	if snap.Segments == nil {
		snap.Segments = segments.Set{}
	}
	if err := s.saves.lastError(); err != nil {
		snap.SaveError = err.Error()
	}
	return snap
}

func (s *Session) clampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	if s.duration > 0 && t > s.duration {
		return s.duration
	}
	return t
}

// dragEdge moves one edge to t, keeping the segment at least MinSegmentWidth
// wide and inside [0, duration]. When a short segment sits against either
// bound the fixed edge gives way to keep the width.
// retarget finds the dragged segment in a normalized set: the one segment
// that holds it, whether or not it absorbed neighbours. IDs are not trusted
// to be unique.
func retarget(set segments.Set, moved segments.Segment, fallback int) int {
	for i, seg := range set {
		if seg.Contains(moved) {
			return i
		}
	}
	if i := segments.IndexOf(set, moved.ID); i >= 0 {
		return i
	}
	return fallback
}

func dragEdge(seg segments.Segment, edge Edge, t, duration float64) segments.Segment {
	switch edge {
	case EdgeStart:
		seg.StartTime = math.Min(t, seg.EndTime-MinSegmentWidth)
		if seg.StartTime < 0 {
			seg.StartTime = 0
			seg.EndTime = math.Max(seg.EndTime, MinSegmentWidth)
		}
	case EdgeEnd:
		seg.EndTime = math.Max(t, seg.StartTime+MinSegmentWidth)
		if duration > 0 && seg.EndTime > duration {
			seg.EndTime = duration
			seg.StartTime = math.Max(0, math.Min(seg.StartTime, duration-MinSegmentWidth))
		}
	}
	if duration > 0 && seg.EndTime > duration {
		seg.EndTime = duration
	}
	if seg.StartTime > seg.EndTime {
		seg.StartTime = seg.EndTime
	}
	return seg
}
