package resolve

import (
	"strings"
	"sync"
)

// pairLocks serializes week inference per coach/student pair. Two
// events for the same pair processed by different workers must not
// interleave their chronology read and append.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a pair and returns its unlock func.
// Locks are never removed; the pair universe is bounded by the roster.
func (p *pairLocks) lock(coach, student string) func() {
	key := strings.ToLower(coach) + "\x00" + strings.ToLower(student)

	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
