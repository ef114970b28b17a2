package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. It backs the "memory" backend and
// tests; FailNext lets tests inject one transient failure per call
// site.
type MemStore struct {
	mu         sync.Mutex
	partitions map[string]map[string]Record
	failNext   error
}

// NewMemStore creates an empty in-memory ledger store.
func NewMemStore() *MemStore {
	return &MemStore{partitions: make(map[string]map[string]Record)}
}

// FailNext makes the next store operation return err once.
func (s *MemStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *MemStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Rows implements Store.
func (s *MemStore) Rows(_ context.Context, partition string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	rows := s.partitions[partition]
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out, nil
}

// BatchUpsert implements Store.
func (s *MemStore) BatchUpsert(_ context.Context, partition string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	rows, ok := s.partitions[partition]
	if !ok {
		rows = make(map[string]Record)
		s.partitions[partition] = rows
	}
	for _, record := range records {
		rows[record.Fingerprint] = record
	}
	return nil
}

// Partitions implements Store.
func (s *MemStore) Partitions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.partitions))
	for partition := range s.partitions {
		out = append(out, partition)
	}
	sort.Strings(out)
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
