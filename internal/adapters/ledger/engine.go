package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"coachledger/pkg/logger"
	"coachledger/pkg/metrics"
	"coachledger/pkg/retry"
)

// Engine performs idempotent upserts against a Store. It keeps a row
// cache per partition (loaded once via Preload) and coalesces pending
// writes into batched flushes. Writes to the same fingerprint are never
// reordered: a later upsert replaces the pending record in place.
type Engine struct {
	store Store

	mu      sync.Mutex
	cache   map[string]map[string]Record // partition -> fingerprint -> row
	pending map[string][]pendingWrite    // partition -> ordered batch
	pendIdx map[string]map[string]int    // partition -> fingerprint -> slot

	batchSize int
	retry     retry.Policy
	log       logger.Logger
	now       func() time.Time
}

type pendingWrite struct {
	record Record
}

// EngineOption applies a configuration option to the Engine.
type EngineOption func(*Engine)

// WithBatchSize sets how many pending rows per partition trigger an
// eager flush.
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRetryPolicy sets the backoff policy for store round trips.
func WithRetryPolicy(p retry.Policy) EngineOption {
	return func(e *Engine) {
		if p.Attempts > 0 {
			e.retry = p
		}
	}
}

// WithEngineLogger sets a custom logger.
func WithEngineLogger(log logger.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the time source; tests pin it.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a sync engine over the given store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		cache:     make(map[string]map[string]Record),
		pending:   make(map[string][]pendingWrite),
		pendIdx:   make(map[string]map[string]int),
		batchSize: 32,
		retry:     retry.DefaultPolicy,
		log:       logger.Get().Named("ledger"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Preload fills the row cache from every known partition. Call once at
// startup, before the first Upsert; it also returns all fingerprints so
// the caller can restore its seen-index.
func (e *Engine) Preload(ctx context.Context) (map[string][]string, error) {
	partitions, err := e.store.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	keys := make(map[string][]string, len(partitions))
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, partition := range partitions {
		rows, err := e.store.Rows(ctx, partition)
		if err != nil {
			return nil, fmt.Errorf("preload partition %s: %w", partition, err)
		}
		byKey := make(map[string]Record, len(rows))
		for _, row := range rows {
			byKey[row.Fingerprint] = row
		}
		e.cache[partition] = byKey
		for _, row := range rows {
			keys[partition] = append(keys[partition], row.Fingerprint)
		}
		sort.Strings(keys[partition])
		metrics.UpdateLedgerRows(partition, len(byKey))
	}
	return keys, nil
}

// Upsert stages one record for its partition and reports what the write
// will do. Inserting a fingerprint already present degrades to updated
// or skipped, never to a duplicate row. A full batch flushes inline.
func (e *Engine) Upsert(ctx context.Context, partition string, record Record) (Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, ok := e.cache[partition]
	if !ok {
		rows = make(map[string]Record)
		e.cache[partition] = rows
	}

	action := ActionInserted
	if existing, found := rows[record.Fingerprint]; found {
		if existing.Equal(record) {
			metrics.RecordLedgerAction(string(ActionSkipped))
			return ActionSkipped, nil
		}
		action = ActionUpdated
	}

	record.UpdatedAt = e.now().UTC()
	rows[record.Fingerprint] = record
	e.stageLocked(partition, record)
	metrics.RecordLedgerAction(string(action))
	metrics.UpdateLedgerRows(partition, len(rows))

	if len(e.pending[partition]) >= e.batchSize {
		if err := e.flushPartitionLocked(ctx, partition); err != nil {
			return action, err
		}
	}
	return action, nil
}

// stageLocked queues a record for the next flush. An in-flight pending
// write for the same fingerprint is replaced in its original slot, so
// per-fingerprint order is preserved. Caller holds e.mu.
func (e *Engine) stageLocked(partition string, record Record) {
	idx, ok := e.pendIdx[partition]
	if !ok {
		idx = make(map[string]int)
		e.pendIdx[partition] = idx
	}
	if slot, staged := idx[record.Fingerprint]; staged {
		e.pending[partition][slot] = pendingWrite{record: record}
		return
	}
	idx[record.Fingerprint] = len(e.pending[partition])
	e.pending[partition] = append(e.pending[partition], pendingWrite{record: record})
}

// Flush writes all pending records in every partition. Errors from one
// partition do not block the others; the first error is returned after
// all partitions were attempted.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	partitions := make([]string, 0, len(e.pending))
	for partition := range e.pending {
		partitions = append(partitions, partition)
	}
	sort.Strings(partitions)

	var firstErr error
	for _, partition := range partitions {
		if err := e.flushPartitionLocked(ctx, partition); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flushPartitionLocked performs one batched store round trip with
// backoff. On ErrConflict it re-reads the partition, reconciles the
// cache, and retries once; a persistent conflict is reported to the
// caller, never silently dropped. Caller holds e.mu.
func (e *Engine) flushPartitionLocked(ctx context.Context, partition string) error {
	batch := e.pending[partition]
	if len(batch) == 0 {
		return nil
	}

	records := make([]Record, len(batch))
	for i, w := range batch {
		records[i] = w.record
	}

	err := e.retry.Do(ctx, func() error {
		upsertErr := e.store.BatchUpsert(ctx, partition, records)
		if upsertErr == nil {
			return nil
		}
		if isConflict(upsertErr) {
			// Conflicts get exactly one reconcile-and-retry, not the
			// full backoff budget.
			return retry.Permanent(upsertErr)
		}
		return upsertErr
	})
	if err != nil && isConflict(err) {
		metrics.RecordLedgerConflict()
		err = e.reconcileAndRetryLocked(ctx, partition, records)
	}
	if err != nil {
		metrics.RecordLedgerFlushError()
		e.log.Error(ctx, "ledger flush failed",
			logger.String("partition", partition),
			logger.Int("records", len(records)),
			logger.Error(err),
		)
		return fmt.Errorf("flush partition %s: %w", partition, err)
	}

	delete(e.pending, partition)
	delete(e.pendIdx, partition)
	metrics.RecordLedgerFlush()
	return nil
}

// reconcileAndRetryLocked re-reads the partition after a conflict,
// refreshes the cache with rows a concurrent writer landed, and retries
// the batch once.
func (e *Engine) reconcileAndRetryLocked(ctx context.Context, partition string, records []Record) error {
	rows, err := e.store.Rows(ctx, partition)
	if err != nil {
		return fmt.Errorf("conflict re-read: %w", err)
	}
	cached := e.cache[partition]
	staged := e.pendIdx[partition]
	for _, row := range rows {
		if _, ours := staged[row.Fingerprint]; ours {
			continue
		}
		cached[row.Fingerprint] = row
	}
	if err := e.store.BatchUpsert(ctx, partition, records); err != nil {
		return fmt.Errorf("conflict retry: %w", err)
	}
	return nil
}

// Rows returns a copy of the cached rows for a partition, sorted by
// fingerprint for stable output.
func (e *Engine) Rows(partition string) []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	cached := e.cache[partition]
	out := make([]Record, 0, len(cached))
	for _, row := range cached {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// Partitions returns the cached partition names, sorted.
func (e *Engine) Partitions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.cache))
	for partition := range e.cache {
		out = append(out, partition)
	}
	sort.Strings(out)
	return out
}

// PendingCount reports staged-but-unflushed rows across partitions.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, batch := range e.pending {
		total += len(batch)
	}
	return total
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
