// Package worker runs the bounded pool that drives recording events
// through resolution and ledger commit.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"coachledger/internal/adapters/ledger"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
	"coachledger/pkg/metrics"
)

// Shutdown bounds.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.RecordingEvent

// Resolver turns a raw event into a canonical identity. Implementations
// must be safe for concurrent use; events for the same coach/student
// pair serialize internally.
type Resolver interface {
	Resolve(ctx context.Context, event Event) (model.ResolvedIdentity, error)
}

// Committer durably records a resolved identity exactly once.
type Committer interface {
	Commit(ctx context.Context, event Event, identity model.ResolvedIdentity) (ledger.Action, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue closes or it is shut down.
type Worker struct {
	queue     Queue
	resolver  Resolver
	committer Committer
	name      string

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewWorker creates a worker bound to the shared queue and pipeline.
func NewWorker(queue Queue, resolver Resolver, committer Committer, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		resolver:  resolver,
		committer: committer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		log:       logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.log = w.log.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled, the queue closes,
// or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.log.Error(ctx, "event processing failed",
					logger.String("external_id", event.ExternalID),
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
		w.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent runs one event through resolve and commit. Failures are
// per-event: the worker keeps pulling from the queue regardless.
func (w *Worker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordResolutionLatency(float64(time.Since(start).Milliseconds()))
	}()

	identity, err := w.resolver.Resolve(ctx, event)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "resolve")
		return fmt.Errorf("resolve event %s: %w", event.ExternalID, err)
	}

	metrics.RecordResolutionConfidence(identity.Overall)
	metrics.RecordWeekMethod(identity.WeekMethod)

	action, err := w.committer.Commit(ctx, event, identity)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "commit")
		return fmt.Errorf("commit event %s: %w", event.ExternalID, err)
	}

	metrics.RecordEventProcessed()
	w.log.Debug(ctx, "event processed",
		logger.String("external_id", event.ExternalID),
		logger.String("coach", identity.Coach),
		logger.String("student", identity.Student),
		logger.Int("week", identity.Week),
		logger.String("action", string(action)),
		logger.Float64("confidence", identity.Overall),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*Worker

	shutdown chan struct{}
	log      logger.Logger
}

// NewPool creates workerCount workers sharing the queue and pipeline.
func NewPool(workerCount int, queue Queue, resolver Resolver, committer Committer) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers:  make([]*Worker, workerCount),
		shutdown: make(chan struct{}),
		log:      logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewWorker(queue, resolver, committer,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue first so workers drain, then waits up to
// the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
