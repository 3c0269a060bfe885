package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrLocked rejects score writes for a tuple that carries a lock.
	ErrLocked = errors.New("submission locked")
	// ErrNotFound marks lookups that resolved nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCriterion rejects score rows referencing criteria outside
	// the seeded event definition.
	ErrUnknownCriterion = errors.New("unknown criterion")
	// ErrNotSeeded marks reads against a store with no event definition.
	ErrNotSeeded = errors.New("event not seeded")
)
