package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trailcut/trailcut/internal/segments"
)

const defaultSaveTimeout = 30 * time.Second

// saveQueue owns the single goroutine that persists a session's snapshots.
// Saves run one at a time in the order they were queued. Every save replaces
// the whole set, so when several snapshots are waiting only the newest one is
// written.
type saveQueue struct {
	key       Key
	persister Persister
	timeout   time.Duration
	logger    *slog.Logger
	onError   func(Key, error)

	mu      sync.Mutex
	pending segments.Set
	hasWork bool
	queued  uint64
	saved   uint64
	lastErr error
	waiters []flushWaiter
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

type flushWaiter struct {
	seq uint64
	ch  chan struct{}
}

func newSaveQueue(key Key, persister Persister, timeout time.Duration, onError func(Key, error), logger *slog.Logger) *saveQueue {
	if timeout <= 0 {
		timeout = defaultSaveTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &saveQueue{
		key:       key,
		persister: persister,
		timeout:   timeout,
		logger:    logger,
		onError:   onError,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go q.run()
	return q
}

// enqueue records snapshot as the newest state to persist. It never blocks.
func (q *saveQueue) enqueue(snapshot segments.Set) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = snapshot
	q.hasWork = true
	q.queued++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *saveQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for !q.hasWork {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			select {
			case <-q.wake:
			case <-q.ctx.Done():
				return
			}
			q.mu.Lock()
		}
		snapshot, seq := q.pending, q.queued
		q.pending, q.hasWork = nil, false
		q.mu.Unlock()

		err := q.save(snapshot)
		if err != nil && q.onError != nil {
			q.onError(q.key, err)
		}

		q.mu.Lock()
		q.saved = seq
		q.lastErr = err
		q.releaseWaiters()
		q.mu.Unlock()
	}
}

func (q *saveQueue) save(snapshot segments.Set) error {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	start := time.Now()
	err := q.persister.Persist(ctx, q.key, snapshot)
	if err != nil {
		q.logger.Warn("segment save failed",
			"project_slug", q.key.Project,
			"video_slug", q.key.Video,
			"segments", len(snapshot),
			"error", err,
		)
		return err
	}
	q.logger.Debug("segments saved",
		"project_slug", q.key.Project,
		"video_slug", q.key.Video,
		"segments", len(snapshot),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// releaseWaiters must be called with mu held.
func (q *saveQueue) releaseWaiters() {
	kept := q.waiters[:0]
	for _, w := range q.waiters {
		if w.seq <= q.saved {
			close(w.ch)
			continue
		}
		kept = append(kept, w)
	}
	q.waiters = kept
}

// flush waits until everything queued so far has been attempted.
func (q *saveQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	if q.saved >= q.queued {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, flushWaiter{seq: q.queued, ch: ch})
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *saveQueue) lastError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// close stops accepting snapshots, lets the worker write what is pending and
// waits for it. If ctx expires first the in-flight save is cancelled.
func (q *saveQueue) close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}
