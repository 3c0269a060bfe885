package app

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrLockPending marks a submission whose scores were written but whose
	// lock step failed. The scores stay valid; the caller retries the lock
	// step only and never re-submits the scores.
	ErrLockPending = errors.New("lock pending")

	// ErrDivisionMismatch rejects cross-division submissions, ranking
	// requests naming contestants outside the division, and the like.
	ErrDivisionMismatch = errors.New("division mismatch")

	// ErrNotStarted marks calls against a service that was never started.
	ErrNotStarted = errors.New("service not started")
)
