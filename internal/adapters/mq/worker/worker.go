// Package worker defines the recompute workers that drain the refresh
// queue. Workers never serve reads; ranking queries always recompute from a
// fresh store snapshot. Their job is to keep derived observability state
// (standings gauges, recompute latency) warm after writes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/tiaraboard/tiara/internal/adapters/mq/queue"
	"github.com/tiaraboard/tiara/pkg/logger"
	"github.com/tiaraboard/tiara/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	workerShutdownTimeout = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Tabulator recomputes standings for the division a refresh event names.
type Tabulator interface {
	Refresh(ctx context.Context, e Event) error
}

// Tracker clears the coalescing key once the event is picked up, so the
// next write enqueues a fresh refresh.
type Tracker interface {
	Clear(ctx context.Context, key string)
}

// Dequeuer is how workers receive events.
type Dequeuer interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker drains refresh events until stopped.
type Worker struct {
	queue     Dequeuer
	tabulator Tabulator
	tracker   Tracker
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Dequeuer, t Tabulator, tracker Tracker, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		tabulator: t,
		tracker:   tracker,
		name:      "recompute",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "recompute failed",
					logger.String("division", e.DivisionID),
					logger.String("category", e.CategoryID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight event.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

// process clears the coalescing key first so writes landing during the
// recompute trigger another pass, then recomputes.
func (w *Worker) process(ctx context.Context, e Event) error {
	if w.tracker != nil {
		w.tracker.Clear(ctx, e.Key())
	}

	start := time.Now()
	err := w.tabulator.Refresh(ctx, e)
	metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRecomputeError()
		return fmt.Errorf("refresh %s: %w", e.Key(), err)
	}
	metrics.RecordRecompute()
	return nil
}

// Pool manages multiple recompute workers.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a worker pool over the shared queue.
func NewPool(workerCount int, q Dequeuer, t Tabulator, tracker Tracker) *Pool {
	if workerCount < 1 {
		workerCount = min(runtime.NumCPU(), defaultWorkerCount)
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("recompute-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, t, tracker, WithName("recompute-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, bounding the wait per worker.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(context.Background(), "worker stop timed out", logger.String("worker", w.name))
		}
	}
}
