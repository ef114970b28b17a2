package week

import (
	"context"
	"sort"
	"sync"
	"time"

	"coachledger/internal/domain/model"
)

// MemChronology is an in-memory Chronology for the memory backend and
// tests. Entries are kept sorted by date per pair.
type MemChronology struct {
	mu      sync.RWMutex
	entries map[pairKey][]model.ChronologyEntry
}

// NewMemChronology creates an empty in-memory chronology.
func NewMemChronology() *MemChronology {
	return &MemChronology{entries: make(map[pairKey][]model.ChronologyEntry)}
}

// Latest implements Chronology.
func (c *MemChronology) Latest(_ context.Context, coach, student string, before time.Time) (model.ChronologyEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.entries[pairKeyOf(coach, student)]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Date.Before(before) {
			return entries[i], true, nil
		}
	}
	return model.ChronologyEntry{}, false, nil
}

// Append implements Chronology.
func (c *MemChronology) Append(_ context.Context, entry model.ChronologyEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pairKeyOf(entry.Coach, entry.Student)
	entries := append(c.entries[key], entry)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	c.entries[key] = entries
	return nil
}

// Len reports the total number of entries across pairs.
func (c *MemChronology) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, entries := range c.entries {
		total += len(entries)
	}
	return total
}
