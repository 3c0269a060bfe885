// Package coalesce collapses duplicate pending recompute requests.
package coalesce

// Option applies a configuration option to the in-memory tracker.
type Option func(*inMemoryTracker)

// WithMaxSize caps the pending set. Zero or negative removes the bound.
func WithMaxSize(size int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = size
	}
}
