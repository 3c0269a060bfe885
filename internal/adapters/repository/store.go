// Package repository defines the score and lock store interface and errors.
//
// The store owns the only shared mutable state in the system. The engine
// never caches its contents across calls; every ranking read starts from a
// fresh snapshot so a computation always reflects some valid prior state.
package repository

import (
	"context"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

// ScoreFilter narrows ListScores. Zero fields match everything.
type ScoreFilter struct {
	JudgeID      string
	CategoryID   string
	ContestantID string
}

// LockFilter narrows ListLocks. Zero fields match everything.
type LockFilter struct {
	JudgeID    string
	CategoryID string
}

// Counts carries store totals for the stats endpoint.
type Counts struct {
	Divisions   int
	Categories  int
	Judges      int
	Contestants int
	Scores      int
	Locks       int
}

// Store provides read/write access to the competition state.
type Store interface {
	// Seed loads the event definition. It replaces any previously seeded
	// entities and keeps existing scores and locks that still resolve.
	Seed(ctx context.Context, event model.Event) error

	// Entity reads.
	Divisions(ctx context.Context) ([]model.Division, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Criteria(ctx context.Context, categoryID string) ([]model.Criterion, error)
	Judges(ctx context.Context, divisionID string) ([]model.Judge, error)
	Contestants(ctx context.Context, divisionID string) ([]model.Contestant, error)
	JudgeByID(ctx context.Context, id string) (model.Judge, error)
	ContestantByID(ctx context.Context, id string) (model.Contestant, error)
	JudgeByAccessCode(ctx context.Context, code string) (model.Judge, error)

	// UpsertScores writes rows keyed on (judge, contestant, category,
	// criterion), overwriting prior values. It returns ErrLocked without
	// writing anything when any row's (judge, category, contestant) tuple
	// carries a lock; the lock check and the writes are atomic.
	UpsertScores(ctx context.Context, rows []model.Score) error

	// ListScores returns score rows matching the filter.
	ListScores(ctx context.Context, f ScoreFilter) ([]model.Score, error)

	// CreateLock marks the tuple immutable. Re-locking an already-locked
	// tuple is a no-op.
	CreateLock(ctx context.Context, l model.Lock) error

	// RemoveLock reopens scoring for the tuple. Removing an absent lock
	// returns ErrNotFound.
	RemoveLock(ctx context.Context, l model.Lock) error

	// IsLocked reports whether the tuple carries a lock.
	IsLocked(ctx context.Context, l model.Lock) (bool, error)

	// ListLocks returns locks matching the filter.
	ListLocks(ctx context.Context, f LockFilter) ([]model.Lock, error)

	// Counts returns store totals for monitoring.
	Counts(ctx context.Context) (Counts, error)
}
