// Package service wires the resolution pipeline, fingerprint index and
// ledger engine together and implements the dependencies required by
// the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coachledger/internal/adapters/ledger"
	eventqueue "coachledger/internal/adapters/mq/queue"
	workerpool "coachledger/internal/adapters/mq/worker"
	"coachledger/internal/adapters/transcript"
	"coachledger/internal/config"
	"coachledger/internal/domain/extract"
	"coachledger/internal/domain/fingerprint"
	"coachledger/internal/domain/fuse"
	"coachledger/internal/domain/model"
	"coachledger/internal/domain/names"
	"coachledger/internal/domain/resolve"
	"coachledger/internal/domain/week"
	"coachledger/pkg/logger"
	"coachledger/pkg/metrics"
	"coachledger/pkg/retry"
)

// Service owns the full ingest path: queue, worker pool, pipeline,
// fingerprint index and ledger engine.
type Service struct {
	mu sync.RWMutex

	roster      *config.Roster
	store       ledger.Store
	chronology  week.Chronology
	transcripts transcript.Provider
	index       fingerprint.Index
	engine      *ledger.Engine
	pipeline    *resolve.Pipeline
	eventQueue  *eventqueue.InMemoryQueue
	workerPool  *workerpool.Pool

	workerCount   int
	queueSize     int
	indexSize     int
	batchSize     int
	flushInterval time.Duration
	retryPolicy   retry.Policy
	writeRaw      bool

	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRoster sets the coach/student roster. Required before Start.
func WithRoster(r *config.Roster) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// WithLedgerStore injects the ledger backend. Defaults to an in-memory
// store when unset.
func WithLedgerStore(store ledger.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithChronology injects the session history backend used for
// chronology-based week inference. Defaults to in-memory.
func WithChronology(c week.Chronology) Option {
	return func(s *Service) {
		s.chronology = c
	}
}

// WithTranscripts injects the transcript text provider.
func WithTranscripts(p transcript.Provider) Option {
	return func(s *Service) {
		s.transcripts = p
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFingerprintCacheSize bounds the in-memory fingerprint index.
func WithFingerprintCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.indexSize = size
		}
	}
}

// WithBatchSize sets how many pending ledger upserts coalesce per
// partition before a write.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithFlushInterval sets how often pending ledger writes are flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithRetryPolicy sets the retry policy for ledger I/O.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retryPolicy = p
	}
}

// WithRawView mirrors pre-standardization rows into raw partitions.
func WithRawView(enabled bool) Option {
	return func(s *Service) {
		s.writeRaw = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	defaults := config.New()
	s := &Service{
		workerCount:   defaults.WorkerCount,
		queueSize:     defaults.QueueSize,
		indexSize:     defaults.FingerprintCacheSize,
		batchSize:     defaults.LedgerBatchSize,
		flushInterval: time.Duration(defaults.LedgerFlushMS) * time.Millisecond,
		retryPolicy:   retry.DefaultPolicy,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the component graph and launches the worker pool. The
// fingerprint index is preloaded from whatever the ledger already
// holds, so a restarted service keeps treating known rows as seen.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.roster == nil {
		return fmt.Errorf("service: roster is required")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting ledger sync service")

	if s.store == nil {
		s.store = ledger.NewMemStore()
	}
	if s.chronology == nil {
		s.chronology = week.NewMemChronology()
	}
	if s.transcripts == nil {
		s.transcripts = transcript.NullProvider{}
	}

	resolver := names.NewResolver(s.roster)
	aggregator := fuse.NewAggregator(resolver)
	extractor := extract.NewExtractor()
	inferencer := week.NewInferencer(s.roster, s.chronology,
		week.WithTranscripts(s.transcripts),
	)
	s.pipeline = resolve.NewPipeline(extractor, aggregator, inferencer)

	s.engine = ledger.NewEngine(s.store,
		ledger.WithBatchSize(s.batchSize),
		ledger.WithRetryPolicy(s.retryPolicy),
	)

	s.index = fingerprint.NewIndex(fingerprint.WithMaxSize(s.indexSize))
	preloaded, err := s.engine.Preload(ctx)
	if err != nil {
		return fmt.Errorf("preload ledger: %w", err)
	}
	var restored int
	for partition, fingerprints := range preloaded {
		keys := make([]string, len(fingerprints))
		for i, fp := range fingerprints {
			keys[i] = partition + "/" + fp
		}
		s.index.Preload(ctx, keys)
		restored += len(keys)
		metrics.UpdateLedgerRows(partition, len(fingerprints))
	}

	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	metrics.UpdateQueueCapacity(s.queueSize)

	committer := newCommitter(s.index, s.engine, s.writeRaw)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.pipeline, committer)
	s.workerPool.Start(ctx)

	go s.flushLoop()

	s.started = true
	s.logger.Info(ctx, "ledger sync service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("restoredFingerprints", restored),
		logger.Bool("rawView", s.writeRaw),
	)
	return nil
}

// flushLoop periodically pushes pending ledger writes to the store so a
// slow trickle of events never sits unflushed past the interval.
func (s *Service) flushLoop() {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.flushInterval)
			if err := s.engine.Flush(ctx); err != nil {
				s.logger.Error(ctx, "periodic ledger flush failed", logger.Error(err))
			}
			cancel()
		}
	}
}

// Stop drains the queue, flushes the ledger and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ledger sync service")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.engine != nil {
		if err := s.engine.Flush(ctx); err != nil {
			s.logger.Error(ctx, "final ledger flush failed", logger.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing ledger store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "ledger sync service stopped")
}

// SeenAndRecord atomically checks whether an ingest id was seen and
// records it if not. Used by the HTTP layer to drop replayed uploads
// before they reach the queue.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.index.SeenAndRecord(ctx, "ingest/"+id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an ingest id from the seen set so the upload can be
// retried after a transient enqueue failure.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.index.Unrecord(ctx, "ingest/"+id)
}

// Enqueue submits a recording event for asynchronous processing.
// Returns false when the queue is full or closed.
func (s *Service) Enqueue(ctx context.Context, event model.RecordingEvent) bool {
	ok := s.eventQueue.Enqueue(ctx, event)
	if ok {
		metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	}
	return ok
}

// Records returns the current rows of one ledger partition, pending
// writes included.
func (s *Service) Records(ctx context.Context, partition string) ([]ledger.Record, error) {
	if err := s.engine.Flush(ctx); err != nil {
		return nil, err
	}
	return s.engine.Rows(partition), nil
}

// Partitions lists every ledger partition seen so far.
func (s *Service) Partitions(ctx context.Context) []string {
	return s.engine.Partitions()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["pendingWrites"] = s.engine.PendingCount()
		stats["fingerprints"] = s.index.Size()
		stats["rosterCoaches"] = len(s.roster.Coaches)

		partitions := s.engine.Partitions()
		rows := make(map[string]int, len(partitions))
		for _, p := range partitions {
			n := len(s.engine.Rows(p))
			rows[p] = n
			metrics.UpdateLedgerRows(p, n)
		}
		stats["partitions"] = rows

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
