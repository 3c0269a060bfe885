// Package coalesce collapses duplicate pending recompute requests.
//
// A burst of submissions for the same division and category should trigger
// one standings recompute, not one per write. The tracker records keys that
// are already waiting in the refresh queue; writers skip enqueueing while a
// key is pending and workers clear it when they pick the event up.
package coalesce

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records pending refresh keys for at-most-once enqueueing.
type Tracker interface {
	// PendingAndMark atomically checks whether key is already pending and
	// marks it if not. Returns true if the key was already pending.
	PendingAndMark(ctx context.Context, key string) bool

	// Clear removes a key, allowing the next write to enqueue a fresh
	// refresh. Workers call this when they dequeue the event.
	Clear(ctx context.Context, key string)

	// Size returns the number of keys currently pending.
	Size() int64
}

// inMemoryTracker implements Tracker with a mutex-guarded set. The pending
// set is naturally bounded by divisions x categories, so there is no
// eviction; maxSize is a safety valve against unbounded keys from bugs.
type inMemoryTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// defaultMaxSize bounds the pending set; real deployments stay far below it.
const defaultMaxSize = 4096

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		pending: make(map[string]struct{}),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PendingAndMark atomically checks and marks key.
func (t *inMemoryTracker) PendingAndMark(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[key]; ok {
		return true
	}
	// When the safety bound is hit, report pending so callers skip the
	// enqueue rather than grow the set; the standing recompute loop still
	// converges on the next cleared key.
	if t.maxSize > 0 && len(t.pending) >= t.maxSize {
		return true
	}
	t.pending[key] = struct{}{}
	t.size.Store(int64(len(t.pending)))
	return false
}

// Clear removes key from the pending set.
func (t *inMemoryTracker) Clear(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
	t.size.Store(int64(len(t.pending)))
}

// Size returns the current number of pending keys.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
